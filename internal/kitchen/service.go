package kitchen

import (
	"context"
	"math"

	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/store"
)

const (
	// DefaultPageSize is used when a caller does not ask for a page size
	DefaultPageSize = 6

	// MaxPageSize caps the page size a caller may request
	MaxPageSize = 100
)

// ImageStore persists uploaded recipe images and returns a reference
// suitable for the recipe's image column.
type ImageStore interface {
	Save(ctx context.Context, data string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Service implements recipe, relation, shopping-list and account
// operations. Every operation takes the acting identity explicitly.
type Service struct {
	store    *store.Store
	guard    *RelationGuard
	images   ImageStore
	pageSize int
	log      logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithImageStore stores recipe images through images. Without one the
// image field is persisted verbatim.
func WithImageStore(images ImageStore) Option {
	return func(s *Service) { s.images = images }
}

// WithPageSize overrides DefaultPageSize
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// NewService wires a Service over st
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:    st,
		guard:    NewRelationGuard(st),
		pageSize: DefaultPageSize,
		log:      logger.Kitchen(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Relations exposes the relation guard
func (s *Service) Relations() *RelationGuard {
	return s.guard
}

// Page selects a slice of an ordered result. Number is 1-based.
type Page struct {
	Number  int
	Size    int
	Unpaged bool
}

// normalizePage fills in defaults and caps the size. A page whose first row
// lies beyond the addressable range is ErrInvalidInput.
func (s *Service) normalizePage(p Page) (Page, error) {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = s.pageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Number > math.MaxInt/p.Size {
		return Page{}, invalid("page", "%d is out of range", p.Number)
	}
	return p, nil
}

func (p Page) offset() uint64 {
	return uint64(p.Number-1) * uint64(p.Size)
}

// HasNext reports whether rows remain after this page out of count
func (p Page) HasNext(count int64) bool {
	if p.Unpaged || p.Number < 1 || p.Size < 1 || count < 1 {
		return false
	}
	return int64(p.Number) <= (count-1)/int64(p.Size)
}

// HasPrevious reports whether an earlier page exists
func (p Page) HasPrevious() bool {
	return !p.Unpaged && p.Number > 1
}
