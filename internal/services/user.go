package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/password"
	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

const maxEmailLength = 254

var (
	errUserNotFound      = apperr.NotFound("User not found.", "Please provide an already registered user.")
	errUsernameExists    = apperr.Validation("Username already exists.", "Please provide a different username.")
	errEmailExists       = apperr.Validation("Email already exists.", "Please provide a different email.")
	errUsernameRequired  = apperr.Validation("Username is required.", usernameRules)
	errUsernameInvalid   = apperr.Validation("Username is invalid.", usernameRules)
	errEmailInvalid      = apperr.Validation("Email is invalid.", "Please provide a valid email address.")
	errPasswordInvalid   = apperr.Validation("Password is invalid.", "Please provide a password with less than 72 characters.")
	errUserInputRequired = apperr.Validation("Request body is invalid.", "Send a JSON object with the fields to change.")
)

const usernameRules = "Username must be 3-20 characters long and contain only letters, numbers, and underscores."

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User, now time.Time) (types.User, error)
	Update(ctx context.Context, user types.User, now time.Time) (types.User, error)
}

// NewUser is the input of a registration.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher password.Hasher
	now    func() time.Time
}

func NewUserService(repo UserRepository, hasher password.Hasher) *UserService {
	return &UserService{repo: repo, hasher: hasher, now: time.Now}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, errUserNotFound
	}
	return s.found(s.repo.GetByID(ctx, id))
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.found(s.repo.GetByUsername(ctx, username))
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.found(s.repo.GetByEmail(ctx, email))
}

// Create validates and stores a new user holding the pre-activation
// feature set.
func (s *UserService) Create(ctx context.Context, input NewUser) (types.User, error) {
	if err := s.checkUsername(ctx, input.Username, ""); err != nil {
		return types.User{}, err
	}
	if err := s.checkEmail(ctx, input.Email, ""); err != nil {
		return types.User{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return types.User{}, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return types.User{}, apperr.Internal(err)
	}

	created, err := s.repo.Create(ctx, types.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: digest,
		Features:     types.PendingActivationFeatures(),
	}, s.now())
	if err != nil {
		return types.User{}, translateWriteErr(err)
	}
	return created, nil
}

// Update applies patch to the user named username. Uniqueness checks ignore
// the user's own record, so re-submitting the current values succeeds.
func (s *UserService) Update(ctx context.Context, username string, patch types.UserPatch) (types.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	if patch.Username == nil && patch.Email == nil && patch.Password == nil {
		return types.User{}, errUserInputRequired
	}

	if patch.Username != nil {
		if err := s.checkUsername(ctx, *patch.Username, user.ID); err != nil {
			return types.User{}, err
		}
		user.Username = *patch.Username
	}
	if patch.Email != nil {
		if err := s.checkEmail(ctx, *patch.Email, user.ID); err != nil {
			return types.User{}, err
		}
		user.Email = *patch.Email
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return types.User{}, err
		}
		digest, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return types.User{}, apperr.Internal(err)
		}
		user.PasswordHash = digest
	}

	updated, err := s.repo.Update(ctx, user, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, errUserNotFound
		}
		return types.User{}, translateWriteErr(err)
	}
	return updated, nil
}

func (s *UserService) found(user types.User, err error) (types.User, error) {
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, errUserNotFound
	}
	return user, err
}

// checkUsername rejects a username that is malformed or already held by a
// user other than selfID.
func (s *UserService) checkUsername(ctx context.Context, username, selfID string) error {
	if strings.TrimSpace(username) == "" {
		return errUsernameRequired
	}
	if !usernamePattern.MatchString(username) {
		return errUsernameInvalid
	}
	existing, err := s.repo.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return errUsernameExists
	}
	return nil
}

func (s *UserService) checkEmail(ctx context.Context, email, selfID string) error {
	if email == "" || len(email) > maxEmailLength || !emailPattern.MatchString(email) || !isBareAddress(email) {
		return errEmailInvalid
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return errEmailExists
	}
	return nil
}

// isBareAddress reports whether email is a plain addr-spec the mailer can
// deliver to, with no display name, list or comment around it.
func isBareAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validatePassword(secret string) error {
	if secret == "" || len(secret) > password.MaxLength {
		return errPasswordInvalid
	}
	return nil
}

// translateWriteErr maps unique-index races that slipped past the checks.
func translateWriteErr(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateUsername):
		return errUsernameExists
	case errors.Is(err, store.ErrDuplicateEmail):
		return errEmailExists
	default:
		return err
	}
}
