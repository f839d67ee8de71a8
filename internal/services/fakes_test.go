package services

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

var testNow = time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: testNow} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memStore mimics the conditional updates of the Postgres repositories.
type memStore struct {
	mu       sync.Mutex
	users    map[string]types.User
	sessions map[string]types.Session
	tokens   map[string]types.ActivationToken
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]types.User{},
		sessions: map[string]types.Session{},
		tokens:   map[string]types.ActivationToken{},
	}
}

func (m *memStore) Users() *memUsers          { return &memUsers{m} }
func (m *memStore) Sessions() *memSessions    { return &memSessions{m} }
func (m *memStore) Tokens() *memTokens        { return &memTokens{m} }
func (m *memStore) Tx() ActivationTx          { return m.tx }
func (m *memStore) user(id string) types.User { m.mu.Lock(); defer m.mu.Unlock(); return m.users[id] }

// tx restores the previous state when fn fails.
func (m *memStore) tx(ctx context.Context, fn func(ActivationRepository, FeatureRepository) error) error {
	m.mu.Lock()
	users := cloneMap(m.users)
	tokens := cloneMap(m.tokens)
	m.mu.Unlock()

	if err := fn(m.Tokens(), m.Users()); err != nil {
		m.mu.Lock()
		m.users, m.tokens = users, tokens
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type memUsers struct{ *memStore }

func (r *memUsers) find(match func(types.User) bool) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.ID == id })
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memUsers) Create(_ context.Context, user types.User, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return types.User{}, store.ErrDuplicateUsername
		}
		if strings.EqualFold(u.Email, user.Email) {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = uuid.NewString()
	user.Username = strings.ToLower(user.Username)
	user.Email = strings.ToLower(user.Email)
	user.Features = slices.Clone(user.Features)
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = user
	return user, nil
}

func (r *memUsers) Update(_ context.Context, user types.User, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	current.Username = strings.ToLower(user.Username)
	current.Email = strings.ToLower(user.Email)
	current.PasswordHash = user.PasswordHash
	current.UpdatedAt = now
	r.users[user.ID] = current
	return current, nil
}

func (r *memUsers) ReplaceFeaturesIfHeld(_ context.Context, id, required string, features []string, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || !user.HasFeature(required) {
		return types.User{}, store.ErrNotFound
	}
	user.Features = slices.Clone(features)
	user.UpdatedAt = now
	r.users[id] = user
	return user, nil
}

type memSessions struct{ *memStore }

func (r *memSessions) Create(_ context.Context, s types.Session, now time.Time) (types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.NewString()
	s.CreatedAt, s.UpdatedAt = now, now
	r.sessions[s.ID] = s
	return s, nil
}

func (r *memSessions) FindValidByToken(_ context.Context, token string, now time.Time) (types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Token == token && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return types.Session{}, store.ErrNotFound
}

func (r *memSessions) Renew(_ context.Context, id string, expiresAt, now time.Time) (types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.ExpiresAt.After(now) {
		return types.Session{}, store.ErrNotFound
	}
	s.ExpiresAt, s.UpdatedAt = expiresAt, now
	r.sessions[id] = s
	return s, nil
}

func (r *memSessions) Revoke(_ context.Context, id string, now time.Time) (types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	base := s.ExpiresAt
	if s.CreatedAt.Before(base) {
		base = s.CreatedAt
	}
	s.ExpiresAt, s.UpdatedAt = base.AddDate(-1, 0, 0), now
	r.sessions[id] = s
	return s, nil
}

type memTokens struct{ *memStore }

func (r *memTokens) Create(_ context.Context, t types.ActivationToken, now time.Time) (types.ActivationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt, t.UpdatedAt = now, now
	r.tokens[t.ID] = t
	return t, nil
}

func (r *memTokens) FindValidByID(_ context.Context, id string, now time.Time) (types.ActivationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || !t.IsValid(now) {
		return types.ActivationToken{}, store.ErrNotFound
	}
	return t, nil
}

func (r *memTokens) Consume(_ context.Context, id string, now time.Time) (types.ActivationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[id]
	if !ok || !t.IsValid(now) {
		return types.ActivationToken{}, store.ErrNotFound
	}
	used := now
	t.UsedAt, t.UpdatedAt = &used, now
	r.tokens[id] = t
	return t, nil
}
