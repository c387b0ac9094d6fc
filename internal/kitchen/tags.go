package kitchen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
)

var (
	colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	slugPattern  = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// ListTags returns every tag ordered by title
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.store.Tags.Query(ctx).OrderBy(tagTitle.Asc(), tagID.Asc()).Find()
}

// GetTag returns one tag
func (s *Service) GetTag(ctx context.Context, id int64) (*models.Tag, error) {
	tag, err := s.store.Tags.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "tag", id)
	}
	return tag, nil
}

// CreateTag stores a new tag. Only administrators may create tags; an empty
// color takes the column default.
func (s *Service) CreateTag(ctx context.Context, actorID int64, tag models.Tag) (*models.Tag, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	tag.ID = 0
	tag.Title = strings.TrimSpace(tag.Title)
	tag.Slug = strings.TrimSpace(tag.Slug)
	if err := checkLength("name", tag.Title, 200); err != nil {
		return nil, err
	}
	if err := checkLength("slug", tag.Slug, 200); err != nil {
		return nil, err
	}
	if !slugPattern.MatchString(tag.Slug) {
		return nil, invalid("slug", "may contain only letters, digits, hyphens and underscores")
	}
	if tag.Color != "" && !colorPattern.MatchString(tag.Color) {
		return nil, invalid("color", "%q is not a #RRGGBB color", tag.Color)
	}

	if err := s.store.Tags.Create(ctx, &tag); err != nil {
		if errors.Is(err, orm.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: tag slug %q", ErrAlreadyExists, tag.Slug)
		}
		return nil, err
	}
	return &tag, nil
}

func (s *Service) requireAdmin(ctx context.Context, actorID int64) error {
	admin, err := s.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return fmt.Errorf("%w: administrator access required", ErrForbidden)
	}
	return nil
}
