package media

import (
	"context"
	"fmt"
)

// DefaultPrefix is the directory or key prefix for recipe images
const DefaultPrefix = "recipes"

// Config selects the image backend. An empty Backend disables storage and
// keeps image fields verbatim.
type Config struct {
	Backend string   `yaml:"backend"` // "", fs or s3
	Dir     string   `yaml:"dir"`
	Prefix  string   `yaml:"prefix"`
	S3      S3Config `yaml:"s3"`
}

// New builds the configured store. A nil Store with a nil error means
// storage is disabled.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "fs":
		dir := cfg.Dir
		if dir == "" {
			dir = "media"
		}
		return NewFSStore(dir, cfg.Prefix)
	case "s3":
		return NewS3Store(ctx, cfg.S3, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
