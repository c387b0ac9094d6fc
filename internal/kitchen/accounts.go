package kitchen

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/eleven-am/foodgram/internal/models"
	"github.com/eleven-am/foodgram/internal/orm"
)

const (
	maxEmail    = 254
	maxName     = 150
	minPassword = 8
	// bcrypt ignores input beyond 72 bytes
	maxPassword = 72
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// UserInput is the registration payload
type UserInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// RecipeSummary is the short recipe form used in subscriptions and in
// favorite or cart responses.
type RecipeSummary struct {
	ID          int64  `db:"id" json:"id"`
	AuthorID    int64  `db:"author_id" json:"-"`
	Name        string `db:"name" json:"name"`
	Image       string `db:"image" json:"image"`
	CookingTime int    `db:"cooking_time" json:"cooking_time"`
}

// AuthorSubscription is a followed author with a preview of their recipes
type AuthorSubscription struct {
	UserProfile
	Recipes      []RecipeSummary `json:"recipes"`
	RecipesCount int64           `json:"recipes_count"`
}

// UserPage is one page of user profiles
type UserPage struct {
	Count   int64         `json:"count"`
	Page    Page          `json:"-"`
	Results []UserProfile `json:"results"`
}

// SubscriptionPage is one page of followed authors
type SubscriptionPage struct {
	Count   int64                `json:"count"`
	Page    Page                 `json:"-"`
	Results []AuthorSubscription `json:"results"`
}

func checkLength(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(value) > max {
		return invalid(field, "must be at most %d characters", max)
	}
	return nil
}

func (in UserInput) validate() error {
	if err := checkLength("email", in.Email, maxEmail); err != nil {
		return err
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return invalid("email", "%q is not a valid address", in.Email)
	}
	if err := checkLength("username", in.Username, maxName); err != nil {
		return err
	}
	if !usernamePattern.MatchString(in.Username) {
		return invalid("username", "may contain only letters, digits and @/./+/-/_")
	}
	if err := checkLength("first_name", in.FirstName, maxName); err != nil {
		return err
	}
	if err := checkLength("last_name", in.LastName, maxName); err != nil {
		return err
	}
	if len(in.Password) < minPassword || len(in.Password) > maxPassword {
		return invalid("password", "must be between %d and %d bytes", minPassword, maxPassword)
	}
	return nil
}

// RegisterUser creates an account with a bcrypt password hash. Email and
// username collisions yield ErrAlreadyExists.
func (s *Service) RegisterUser(ctx context.Context, in UserInput) (*UserProfile, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, orm.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, uniqueField(err))
		}
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")

	profiles, err := s.profiles(ctx, []models.User{*user}, nil)
	if err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

func uniqueField(err error) string {
	name := orm.GetConstraintName(err)
	switch {
	case strings.Contains(name, "email"):
		return "email already registered"
	case strings.Contains(name, "username"):
		return "username already taken"
	}
	return "user already exists"
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords both yield ErrNotFound.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.Users.Query(ctx).Where(userEmail.Eq(strings.TrimSpace(email))).First()
	if err != nil {
		if errors.Is(err, orm.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrNotFound)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrNotFound)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "user", id)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return invalid("current_password", "does not match")
	}
	if len(next) < minPassword || len(next) > maxPassword {
		return invalid("new_password", "must be between %d and %d bytes", minPassword, maxPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	return notFound(s.store.Users.Update(ctx, user), "user", id)
}

// IsAdmin reports whether the user may manage tags and ingredients
func (s *Service) IsAdmin(ctx context.Context, id int64) (bool, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, orm.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// GetUser returns one profile with is_subscribed for the requester
func (s *Service) GetUser(ctx context.Context, id int64, requester *int64) (*UserProfile, error) {
	user, err := s.store.Users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}

	profiles, err := s.profiles(ctx, []models.User{*user}, requester)
	if err != nil {
		return nil, err
	}
	return &profiles[0], nil
}

// ListUsers pages through all users ordered by username
func (s *Service) ListUsers(ctx context.Context, requester *int64, page Page) (*UserPage, error) {
	page, err := s.normalizePage(page)
	if err != nil {
		return nil, err
	}

	q := s.store.Users.Query(ctx)
	count, err := q.Count()
	if err != nil {
		return nil, err
	}

	q.OrderBy(userUsername.Asc())
	if !page.Unpaged {
		q.Limit(uint64(page.Size)).Offset(page.offset())
	}
	users, err := q.Find()
	if err != nil {
		return nil, err
	}

	profiles, err := s.profiles(ctx, users, requester)
	if err != nil {
		return nil, err
	}
	return &UserPage{Count: count, Page: page, Results: profiles}, nil
}

// ListSubscriptions pages through the authors followerID follows. Each
// author carries recipes_count and, newest first, at most recipesLimit
// recipes; a limit <= 0 includes all of them.
func (s *Service) ListSubscriptions(ctx context.Context, followerID int64, page Page, recipesLimit int) (*SubscriptionPage, error) {
	page, err := s.normalizePage(page)
	if err != nil {
		return nil, err
	}

	q := s.store.Users.Query(ctx).
		InnerJoin("subscriptions", "subscriptions.author_id = users.id").
		Where(subscriptionFollower.Eq(followerID))

	count, err := q.Count()
	if err != nil {
		return nil, err
	}

	q.OrderBy(userUsername.Asc())
	if !page.Unpaged {
		q.Limit(uint64(page.Size)).Offset(page.offset())
	}
	authors, err := q.Find()
	if err != nil {
		return nil, err
	}

	results := make([]AuthorSubscription, 0, len(authors))
	if len(authors) == 0 {
		return &SubscriptionPage{Count: count, Page: page, Results: results}, nil
	}

	ids := make([]int64, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}

	recipes, err := orm.SelectAs[RecipeSummary](
		s.store.Recipes.Query(ctx).
			Where(recipeAuthor.Any(ids)).
			OrderBy(recipePubDate.Desc(), recipeID.Desc()),
		"recipes.id AS id",
		"recipes.author_id AS author_id",
		"recipes.name AS name",
		"recipes.image AS image",
		"recipes.cooking_time AS cooking_time",
	)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int64, len(authors))
	byAuthor := make(map[int64][]RecipeSummary, len(authors))
	for _, r := range recipes {
		counts[r.AuthorID]++
		if recipesLimit <= 0 || len(byAuthor[r.AuthorID]) < recipesLimit {
			byAuthor[r.AuthorID] = append(byAuthor[r.AuthorID], r)
		}
	}

	profiles, err := s.profiles(ctx, authors, &followerID)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		preview := byAuthor[p.ID]
		if preview == nil {
			preview = []RecipeSummary{}
		}
		results = append(results, AuthorSubscription{
			UserProfile:  p,
			Recipes:      preview,
			RecipesCount: counts[p.ID],
		})
	}

	return &SubscriptionPage{Count: count, Page: page, Results: results}, nil
}

// GetRecipeSummary loads the short form of one recipe
func (s *Service) GetRecipeSummary(ctx context.Context, id int64) (*RecipeSummary, error) {
	recipe, err := s.store.Recipes.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "recipe", id)
	}
	return &RecipeSummary{
		ID:          recipe.ID,
		AuthorID:    recipe.AuthorID,
		Name:        recipe.Name,
		Image:       recipe.Image,
		CookingTime: recipe.CookingTime,
	}, nil
}
