package services

import (
	"context"
	"errors"
	"sync"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/observability"
	"github.com/bioespinhanews/apiserver/internal/password"
	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/bioespinhanews/apiserver/types"
)

var errAuthenticationFailed = apperr.Unauthorized(
	"Authentication failed.",
	"Verify provided email and password and try again.",
)

// CredentialRepository looks users up by login identifier.
type CredentialRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// Authenticator checks email and password pairs. Unknown emails and wrong
// passwords fail with the same error.
type Authenticator struct {
	users   CredentialRepository
	hasher  password.Hasher
	metrics *observability.Metrics

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthenticator(users CredentialRepository, hasher password.Hasher, metrics *observability.Metrics) *Authenticator {
	return &Authenticator{users: users, hasher: hasher, metrics: metrics}
}

func (a *Authenticator) Authenticate(ctx context.Context, email, secret string) (types.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// spend the same hashing time as a real comparison
			a.verifyDummy(secret)
			a.metrics.AuthAttempt("failure")
			return types.User{}, errAuthenticationFailed
		}
		return types.User{}, err
	}

	ok, err := a.hasher.Verify(secret, user.PasswordHash)
	if err != nil {
		return types.User{}, err
	}
	// bcrypt ignores bytes past MaxLength; reject after verifying so the
	// timing matches any other failure.
	if !ok || len(secret) > password.MaxLength {
		a.metrics.AuthAttempt("failure")
		return types.User{}, errAuthenticationFailed
	}

	a.metrics.AuthAttempt("success")
	return user, nil
}

func (a *Authenticator) verifyDummy(secret string) {
	a.dummyOnce.Do(func() {
		a.dummyDigest, _ = a.hasher.Hash("bioespinha-unknown-account")
	})
	if a.dummyDigest != "" {
		_, _ = a.hasher.Verify(secret, a.dummyDigest)
	}
}
