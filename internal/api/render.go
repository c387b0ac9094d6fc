package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eleven-am/foodgram/internal/kitchen"
	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/media"
	"github.com/eleven-am/foodgram/internal/orm"
)

const (
	maxBodySize = 8 << 20

	// retryAfterSeconds is advertised on 503 responses for transient
	// database failures.
	retryAfterSeconds = "1"
)

type errorBody struct {
	Errors string `json:"errors"`
}

// paginated is the list envelope: count, next and previous page URLs and
// the page's results.
type paginated struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.HTTP().WithError(err).Warn("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Errors: msg})
}

// statusFor maps service errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, kitchen.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kitchen.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, kitchen.ErrAlreadyExists),
		errors.Is(err, kitchen.ErrSelfReference),
		errors.Is(err, kitchen.ErrInvalidAmount),
		errors.Is(err, kitchen.ErrDuplicateIngredient),
		errors.Is(err, kitchen.ErrInvalidInput),
		errors.Is(err, media.ErrInvalidImage),
		errors.Is(err, media.ErrUnsupportedImage),
		errors.Is(err, media.ErrImageTooLarge):
		return http.StatusBadRequest
	case orm.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		logger.FromContext(r.Context(), logger.HTTP()).WithError(err).Warn("transient database failure")
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeMessage(w, status, "service temporarily unavailable")
		return
	case http.StatusInternalServerError:
		logger.FromContext(r.Context(), logger.HTTP()).WithError(err).Error("request failed")
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", kitchen.ErrInvalidInput, err)
	}
	return nil
}

// pathID reads a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", kitchen.ErrNotFound, chi.URLParam(r, name))
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", kitchen.ErrInvalidInput, name)
	}
	return v, nil
}

// queryBool treats 1 and true as set
func queryBool(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "True":
		return true
	}
	return false
}

// pageFromQuery reads page and limit
func pageFromQuery(r *http.Request) (kitchen.Page, error) {
	number, err := queryInt(r, "page")
	if err != nil {
		return kitchen.Page{}, err
	}
	size, err := queryInt(r, "limit")
	if err != nil {
		return kitchen.Page{}, err
	}
	return kitchen.Page{Number: number, Size: size}, nil
}

func pageURL(r *http.Request, number int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	q := r.URL.Query()
	q.Set("page", strconv.Itoa(number))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

func newPaginated(r *http.Request, count int64, page kitchen.Page, results interface{}) paginated {
	out := paginated{Count: count, Results: results}
	if page.HasNext(count) {
		out.Next = pageURL(r, page.Number+1)
	}
	if page.HasPrevious() {
		out.Previous = pageURL(r, page.Number-1)
	}
	return out
}
