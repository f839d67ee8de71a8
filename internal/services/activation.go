package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/notify"
	"github.com/bioespinhanews/apiserver/internal/observability"
	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

// ActivationTTL is how long an activation link stays usable.
const ActivationTTL = 15 * time.Minute

const activationSubject = "Ative seu cadastro no Bio Espinha News!"

var (
	errActivationTokenInvalid = apperr.NotFound(
		"Activation token not found, already used or expired.",
		"Request a new activation link.",
	)
	errUserNotActivatable = apperr.Unauthorized(
		"User cannot be activated.",
		"Verify if the user is pending activation.",
	)
)

// ActivationRepository defines persistence operations for activation tokens.
type ActivationRepository interface {
	Create(ctx context.Context, token types.ActivationToken, now time.Time) (types.ActivationToken, error)
	FindValidByID(ctx context.Context, id string, now time.Time) (types.ActivationToken, error)
	Consume(ctx context.Context, id string, now time.Time) (types.ActivationToken, error)
}

// FeatureRepository swaps a user's feature set behind a guard feature.
type FeatureRepository interface {
	ReplaceFeaturesIfHeld(ctx context.Context, id, required string, features []string, now time.Time) (types.User, error)
}

// ActivationTx runs fn with repositories bound to one transaction, committing
// only when fn returns nil.
type ActivationTx func(ctx context.Context, fn func(tokens ActivationRepository, users FeatureRepository) error) error

// ActivationConfig holds the values used to build activation emails.
type ActivationConfig struct {
	// Origin is the public base URL, without trailing slash.
	Origin string
	From   string
}

// ActivationService runs the account activation handshake.
type ActivationService struct {
	tokens   ActivationRepository
	users    FeatureRepository
	tx       ActivationTx
	notifier notify.Notifier
	cfg      ActivationConfig
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewActivationService(
	tokens ActivationRepository,
	users FeatureRepository,
	tx ActivationTx,
	notifier notify.Notifier,
	cfg ActivationConfig,
	metrics *observability.Metrics,
) *ActivationService {
	return &ActivationService{
		tokens:   tokens,
		users:    users,
		tx:       tx,
		notifier: notifier,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Create issues a token for userID expiring after ActivationTTL.
func (s *ActivationService) Create(ctx context.Context, userID string) (types.ActivationToken, error) {
	now := s.now()
	return s.tokens.Create(ctx, types.ActivationToken{
		UserID:    userID,
		ExpiresAt: now.Add(ActivationTTL),
	}, now)
}

// FindValid returns the token if it is unused and unexpired.
func (s *ActivationService) FindValid(ctx context.Context, tokenID string) (types.ActivationToken, error) {
	if _, err := uuid.Parse(tokenID); err != nil {
		return types.ActivationToken{}, errActivationTokenInvalid
	}
	token, err := s.tokens.FindValidByID(ctx, tokenID, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return types.ActivationToken{}, errActivationTokenInvalid
	}
	return token, err
}

// Consume marks the token used. At most one caller succeeds per token.
func (s *ActivationService) Consume(ctx context.Context, tokenID string) (types.ActivationToken, error) {
	return consumeToken(ctx, s.tokens, tokenID, s.now())
}

// ActivateUser grants the activated feature set to a user that is still
// pending activation.
func (s *ActivationService) ActivateUser(ctx context.Context, userID string) (types.User, error) {
	return activateUser(ctx, s.users, userID, s.now())
}

// Activate consumes tokenID and upgrades its owner in one transaction. If
// the upgrade is refused the consumption is rolled back, so a token is only
// ever spent on a successful activation.
func (s *ActivationService) Activate(ctx context.Context, tokenID string) (types.User, error) {
	now := s.now()
	var activated types.User
	err := s.tx(ctx, func(tokens ActivationRepository, users FeatureRepository) error {
		token, err := consumeToken(ctx, tokens, tokenID, now)
		if err != nil {
			return err
		}
		activated, err = activateUser(ctx, users, token.UserID, now)
		return err
	})
	if err != nil {
		s.metrics.Activation(activationResult(err))
		return types.User{}, err
	}
	s.metrics.Activation("activated")
	return activated, nil
}

// SendEmailToUser mails the activation link for token to user.
func (s *ActivationService) SendEmailToUser(ctx context.Context, user types.User, token types.ActivationToken) error {
	err := s.notifier.Send(ctx, notify.Message{
		From:    s.cfg.From,
		To:      user.Email,
		Subject: activationSubject,
		Text:    s.emailText(user, token),
	})
	if err != nil {
		s.metrics.Email("failed")
		if _, ok := apperr.As(err); ok {
			return err
		}
		return apperr.Service("Could not send email.", err)
	}
	s.metrics.Email("sent")
	return nil
}

// ActivationLink is the URL the user follows to activate their account.
func (s *ActivationService) ActivationLink(tokenID string) string {
	return s.cfg.Origin + "/register/activate/" + tokenID
}

func (s *ActivationService) emailText(user types.User, token types.ActivationToken) string {
	return fmt.Sprintf(`%s, clique no link abaixo para ativar seu cadastro no Bio Espinha News

%s

Atenciosamente,
Equipe do Bio Espinha News
`, user.Username, s.ActivationLink(token.ID))
}

func consumeToken(ctx context.Context, tokens ActivationRepository, tokenID string, now time.Time) (types.ActivationToken, error) {
	if _, err := uuid.Parse(tokenID); err != nil {
		return types.ActivationToken{}, errActivationTokenInvalid
	}
	token, err := tokens.Consume(ctx, tokenID, now)
	if errors.Is(err, store.ErrNotFound) {
		return types.ActivationToken{}, errActivationTokenInvalid
	}
	return token, err
}

func activateUser(ctx context.Context, users FeatureRepository, userID string, now time.Time) (types.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return types.User{}, errUserNotActivatable
	}
	user, err := users.ReplaceFeaturesIfHeld(ctx, userID, types.FeatureReadActivationToken, types.ActivatedFeatures(), now)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, errUserNotActivatable
	}
	return user, err
}

func activationResult(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "token_invalid"
	case apperr.KindUnauthorized:
		return "user_not_pending"
	default:
		return "error"
	}
}
