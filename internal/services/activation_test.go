package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/notify"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type activationFixture struct {
	svc    *ActivationService
	mem    *memStore
	clock  *clock
	outbox *outbox
}

func newActivationFixture() activationFixture {
	mem := newMemStore()
	c := newClock()
	box := &outbox{}
	svc := NewActivationService(mem.Tokens(), mem.Users(), mem.Tx(), box, ActivationConfig{
		Origin: "http://localhost:3000",
		From:   "Bio Espinha News <contato@bioespinhanews.com.br>",
	}, nil)
	svc.now = c.Now
	return activationFixture{svc: svc, mem: mem, clock: c, outbox: box}
}

func (f activationFixture) pendingUser(t *testing.T, username string) types.User {
	t.Helper()
	user, err := f.mem.Users().Create(context.Background(), types.User{
		Username: username,
		Email:    username + "@test.com",
		Features: types.PendingActivationFeatures(),
	}, f.clock.Now())
	require.NoError(t, err)
	return user
}

func TestActivationCreateExpiresInFifteenMinutes(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")

	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
	assert.Nil(t, token.UsedAt)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), token.ExpiresAt)

	found, err := f.svc.FindValid(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)
}

func TestActivationConsumeOnce(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	consumed, err := f.svc.Consume(context.Background(), token.ID)
	require.NoError(t, err)
	require.NotNil(t, consumed.UsedAt)
	assert.Equal(t, *consumed.UsedAt, consumed.UpdatedAt)

	_, err = f.svc.Consume(context.Background(), token.ID)
	assert.ErrorIs(t, err, errActivationTokenInvalid)

	_, err = f.svc.FindValid(context.Background(), token.ID)
	assert.ErrorIs(t, err, errActivationTokenInvalid)
}

func TestActivationConsumeExpired(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	f.clock.Advance(ActivationTTL)
	_, err = f.svc.Consume(context.Background(), token.ID)
	assert.ErrorIs(t, err, errActivationTokenInvalid)
}

func TestActivationUnknownAndMalformedTokens(t *testing.T) {
	f := newActivationFixture()

	for _, id := range []string{"1f0c3c8e-5a43-4f6e-9a3b-7c0d2f3b9e10", "not-a-uuid", ""} {
		_, err := f.svc.Consume(context.Background(), id)
		appErr, ok := apperr.As(err)
		require.True(t, ok, id)
		assert.Equal(t, apperr.KindNotFound, appErr.Kind)
		assert.Equal(t, "Activation token not found, already used or expired.", appErr.Message)
	}
}

func TestActivationConcurrentConsume(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	var wins, misses atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Consume(context.Background(), token.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, errActivationTokenInvalid):
				misses.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), misses.Load())
}

func TestActivateUserReplacesFeatures(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")

	activated, err := f.svc.ActivateUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActivatedFeatures(), activated.Features)
	assert.False(t, activated.HasFeature(types.FeatureReadActivationToken))

	_, err = f.svc.ActivateUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, errUserNotActivatable)
}

func TestActivateUserWithoutPendingFeature(t *testing.T) {
	f := newActivationFixture()
	user, err := f.mem.Users().Create(context.Background(), types.User{
		Username: "nofeatures",
		Email:    "nofeatures@test.com",
		Features: []string{},
	}, f.clock.Now())
	require.NoError(t, err)

	_, err = f.svc.ActivateUser(context.Background(), user.ID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindUnauthorized, appErr.Kind)
	assert.Empty(t, f.mem.user(user.ID).Features)
}

// Upgrade runs before consume on a valid token. Each step succeeds exactly once.
func TestActivationUpgradeBeforeConsume(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	activated, err := f.svc.ActivateUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActivatedFeatures(), activated.Features)

	_, err = f.svc.Consume(context.Background(), token.ID)
	require.NoError(t, err)

	_, err = f.svc.ActivateUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, errUserNotActivatable)
	_, err = f.svc.Consume(context.Background(), token.ID)
	assert.ErrorIs(t, err, errActivationTokenInvalid)
	assert.Equal(t, types.ActivatedFeatures(), f.mem.user(user.ID).Features)
}

func TestActivate(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	activated, err := f.svc.Activate(context.Background(), token.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, activated.ID)
	assert.Equal(t, types.ActivatedFeatures(), activated.Features)

	_, err = f.svc.Activate(context.Background(), token.ID)
	assert.ErrorIs(t, err, errActivationTokenInvalid)
}

func TestActivateRollsBackConsumeWhenUserNotPending(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)
	_, err = f.svc.ActivateUser(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = f.svc.Activate(context.Background(), token.ID)
	assert.ErrorIs(t, err, errUserNotActivatable)

	// the failed activation did not spend the token
	_, err = f.svc.FindValid(context.Background(), token.ID)
	assert.NoError(t, err)
}

func TestSendEmailToUser(t *testing.T) {
	f := newActivationFixture()
	user := f.pendingUser(t, "testuser")
	token, err := f.svc.Create(context.Background(), user.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.SendEmailToUser(context.Background(), user, token))
	require.Len(t, f.outbox.sent, 1)

	msg := f.outbox.sent[0]
	assert.Equal(t, "testuser@test.com", msg.To)
	assert.Equal(t, "Bio Espinha News <contato@bioespinhanews.com.br>", msg.From)
	assert.Equal(t, "Ative seu cadastro no Bio Espinha News!", msg.Subject)
	assert.Contains(t, msg.Text, "testuser")
	assert.Contains(t, msg.Text, "http://localhost:3000/register/activate/"+token.ID)
}

func TestSendEmailToUserTransportFailure(t *testing.T) {
	f := newActivationFixture()
	f.outbox.err = errors.New("dial tcp: connection refused")
	user := f.pendingUser(t, "testuser")

	err := f.svc.SendEmailToUser(context.Background(), user, types.ActivationToken{ID: "x"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindService, appErr.Kind)
	assert.Equal(t, "Could not send email.", appErr.Message)
}
