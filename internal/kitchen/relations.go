package kitchen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eleven-am/foodgram/internal/logger"
	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
	"github.com/eleven-am/foodgram/internal/store"
)

// RelationKind names one of the guarded binary relations
type RelationKind string

const (
	Favorite     RelationKind = "favorite"
	Cart         RelationKind = "cart"
	Subscription RelationKind = "subscription"
)

// Relation is a stored (subject, object) pair. For Favorite and Cart the
// subject is a user and the object a recipe; for Subscription both are
// users, follower first.
type Relation struct {
	ID        int64        `json:"id"`
	Kind      RelationKind `json:"kind"`
	SubjectID int64        `json:"subject_id"`
	ObjectID  int64        `json:"object_id"`
	CreatedAt time.Time    `json:"created_at"`
}

// pairTable adapts one join table to the guard
type pairTable struct {
	objectName   string
	objectExists func(ctx context.Context, st *store.Store, id int64) (bool, error)
	exists       func(ctx context.Context, st *store.Store, subject, object int64) (bool, error)
	insert       func(ctx context.Context, st *store.Store, subject, object int64) (*Relation, error)
	remove       func(ctx context.Context, st *store.Store, subject, object int64) (int64, error)
}

func newPairTable[T any](
	objectName string,
	repo func(*store.Store) *orm.Repository[T],
	subjectCol, objectCol orm.Column[int64],
	objectExists func(ctx context.Context, st *store.Store, id int64) (bool, error),
	build func(subject, object int64) *T,
	toRelation func(*T) *Relation,
) pairTable {
	where := func(subject, object int64) orm.Condition {
		return orm.And(subjectCol.Eq(subject), objectCol.Eq(object))
	}

	return pairTable{
		objectName:   objectName,
		objectExists: objectExists,
		exists: func(ctx context.Context, st *store.Store, subject, object int64) (bool, error) {
			return repo(st).Query(ctx).Where(where(subject, object)).Exists()
		},
		insert: func(ctx context.Context, st *store.Store, subject, object int64) (*Relation, error) {
			record := build(subject, object)
			if err := repo(st).Create(ctx, record); err != nil {
				return nil, err
			}
			return toRelation(record), nil
		},
		remove: func(ctx context.Context, st *store.Store, subject, object int64) (int64, error) {
			return repo(st).Query(ctx).Where(where(subject, object)).Delete()
		},
	}
}

func recipeExists(ctx context.Context, st *store.Store, id int64) (bool, error) {
	return st.Recipes.Query(ctx).Where(recipeID.Eq(id)).Exists()
}

func userExists(ctx context.Context, st *store.Store, id int64) (bool, error) {
	return st.Users.Query(ctx).Where(userID.Eq(id)).Exists()
}

// RelationGuard enforces at-most-once Favorite, Cart and Subscription pairs
// and forbids self-subscription. The existence check gives a clean error in
// the common case; the unique constraints settle concurrent adds.
type RelationGuard struct {
	store  *store.Store
	tables map[RelationKind]pairTable
	log    logger.Logger
}

// NewRelationGuard creates a guard over st
func NewRelationGuard(st *store.Store) *RelationGuard {
	return &RelationGuard{
		store: st,
		log:   logger.Kitchen().WithField("guard", "relations"),
		tables: map[RelationKind]pairTable{
			Favorite: newPairTable(
				"recipe",
				func(st *store.Store) *orm.Repository[models.Favorite] { return st.Favorites },
				favoriteUser, favoriteRecipe,
				recipeExists,
				func(subject, object int64) *models.Favorite {
					return &models.Favorite{UserID: subject, RecipeID: object}
				},
				func(f *models.Favorite) *Relation {
					return &Relation{ID: f.ID, Kind: Favorite, SubjectID: f.UserID, ObjectID: f.RecipeID, CreatedAt: f.CreatedAt}
				},
			),
			Cart: newPairTable(
				"recipe",
				func(st *store.Store) *orm.Repository[models.Cart] { return st.Carts },
				cartUser, cartRecipe,
				recipeExists,
				func(subject, object int64) *models.Cart {
					return &models.Cart{UserID: subject, RecipeID: object}
				},
				func(c *models.Cart) *Relation {
					return &Relation{ID: c.ID, Kind: Cart, SubjectID: c.UserID, ObjectID: c.RecipeID, CreatedAt: c.CreatedAt}
				},
			),
			Subscription: newPairTable(
				"user",
				func(st *store.Store) *orm.Repository[models.Subscription] { return st.Subscriptions },
				subscriptionFollower, subscriptionAuthor,
				userExists,
				func(subject, object int64) *models.Subscription {
					return &models.Subscription{FollowerID: subject, AuthorID: object}
				},
				func(s *models.Subscription) *Relation {
					return &Relation{ID: s.ID, Kind: Subscription, SubjectID: s.FollowerID, ObjectID: s.AuthorID, CreatedAt: s.CreatedAt}
				},
			),
		},
	}
}

func (g *RelationGuard) table(kind RelationKind) (pairTable, error) {
	t, ok := g.tables[kind]
	if !ok {
		return pairTable{}, invalid("kind", "unknown relation kind %q", kind)
	}
	return t, nil
}

// Add stores the (subject, object) pair.
//
// Errors: ErrSelfReference for a subscription to oneself (checked first),
// ErrNotFound when the object does not exist and ErrAlreadyExists when the
// pair is already stored, including when a concurrent add wins the race.
func (g *RelationGuard) Add(ctx context.Context, kind RelationKind, subject, object int64) (*Relation, error) {
	t, err := g.table(kind)
	if err != nil {
		return nil, err
	}

	if kind == Subscription && subject == object {
		return nil, ErrSelfReference
	}

	found, err := t.objectExists(ctx, g.store, object)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.objectName, object)
	}

	exists, err := t.exists(ctx, g.store, subject, object)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s %d -> %d", ErrAlreadyExists, kind, subject, object)
	}

	rel, err := t.insert(ctx, g.store, subject, object)
	switch {
	case err == nil:
	case errors.Is(err, orm.ErrDuplicateKey):
		g.log.WithField("kind", string(kind)).Debug("concurrent add rejected by %s", orm.GetConstraintName(err))
		return nil, fmt.Errorf("%w: %s %d -> %d", ErrAlreadyExists, kind, subject, object)
	case errors.Is(err, orm.ErrForeignKey):
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.objectName, object)
	case errors.Is(err, orm.ErrCheckConstraint):
		return nil, ErrSelfReference
	default:
		return nil, err
	}

	g.log.WithFields(map[string]interface{}{
		"kind":    string(kind),
		"subject": subject,
		"object":  object,
	}).Debug("relation added")

	return rel, nil
}

// Remove deletes exactly the (subject, object) pair. ErrNotFound when the
// pair is not stored.
func (g *RelationGuard) Remove(ctx context.Context, kind RelationKind, subject, object int64) error {
	t, err := g.table(kind)
	if err != nil {
		return err
	}

	affected, err := t.remove(ctx, g.store, subject, object)
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s %d -> %d", ErrNotFound, kind, subject, object)
	}

	return nil
}

// Exists reports whether the pair is stored
func (g *RelationGuard) Exists(ctx context.Context, kind RelationKind, subject, object int64) (bool, error) {
	t, err := g.table(kind)
	if err != nil {
		return false, err
	}
	return t.exists(ctx, g.store, subject, object)
}

// AddRelation is a shorthand for Relations().Add
func (s *Service) AddRelation(ctx context.Context, kind RelationKind, subject, object int64) (*Relation, error) {
	return s.guard.Add(ctx, kind, subject, object)
}

// RemoveRelation is a shorthand for Relations().Remove
func (s *Service) RemoveRelation(ctx context.Context, kind RelationKind, subject, object int64) error {
	return s.guard.Remove(ctx, kind, subject, object)
}
