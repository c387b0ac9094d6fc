package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize bounds a decoded upload
const MaxImageSize = 5 << 20

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Store persists recipe images. Save accepts a data URI
// ("data:image/png;base64,...") and returns the object reference stored on
// the recipe.
type Store interface {
	Save(ctx context.Context, data string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Image is a decoded upload
type Image struct {
	ContentType string
	Ext         string
	Data        []byte
}

// DecodeDataURI parses a base64 data URI. The declared content type must
// match the sniffed one.
func DecodeDataURI(uri string) (*Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: expected a base64 data URI", ErrInvalidImage)
	}

	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	ext, ok := extensions[declared]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, declared)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+3 {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, MaxImageSize)
	}

	if sniffed := http.DetectContentType(data); sniffed != declared {
		return nil, fmt.Errorf("%w: declared %s, got %s", ErrInvalidImage, declared, sniffed)
	}

	return &Image{ContentType: declared, Ext: ext, Data: data}, nil
}

// objectKey names a new object under prefix
func objectKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+"."+ext)
}

// cleanRef rejects references that escape the store's prefix
func cleanRef(prefix, ref string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(ref, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || !strings.HasPrefix(cleaned, prefix+"/") {
		return "", fmt.Errorf("%w: reference %q is outside %s", ErrInvalidImage, ref, prefix)
	}
	return cleaned, nil
}
