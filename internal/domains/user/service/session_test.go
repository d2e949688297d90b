package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domains/user/model"
	infraCache "storefront/internal/infrastructure/cache"
	"storefront/pkg/jwt"
)

func TestSession_GuestIDPersisted(t *testing.T) {
	store := infraCache.NewMemoryCache()
	ctx := context.Background()

	first, err := NewSession(store, time.Hour).GuestID(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	// a new Session over the same storage is the same browser after a reload
	second, err := NewSession(store, time.Hour).GuestID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSession_InvalidStoredGuestIDRegenerated(t *testing.T) {
	store := infraCache.NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, keyGuestID, "not-a-uuid", 0))

	id, err := NewSession(store, time.Hour).GuestID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestSession_SignInAndClear(t *testing.T) {
	store := infraCache.NewMemoryCache()
	ctx := context.Background()
	s := NewSession(store, time.Hour)

	require.NoError(t, s.SignIn(ctx, "a1", "r1"))
	access, refresh := NewSession(store, time.Hour).Tokens(ctx)
	assert.Equal(t, "a1", access)
	assert.Equal(t, "r1", refresh)

	require.NoError(t, s.SetTokens(ctx, "a2", ""))
	access, refresh = s.Tokens(ctx)
	assert.Equal(t, "a2", access)
	assert.Equal(t, "r1", refresh)

	guest, err := s.GuestID(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.IsAuthenticated(ctx))
	access, _ = NewSession(store, time.Hour).Tokens(ctx)
	assert.Empty(t, access)

	again, err := s.GuestID(ctx)
	require.NoError(t, err)
	assert.Equal(t, guest, again)
}

func TestSession_CartKey(t *testing.T) {
	ctx := context.Background()
	s := NewSession(infraCache.NewMemoryCache(), time.Hour)

	guest, err := s.GuestID(ctx)
	require.NoError(t, err)
	key, err := s.CartKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cart:guest:"+guest, key)

	token, err := jwt.NewManager("secret", time.Hour).GenerateAccessToken("user-7", "u@example.com")
	require.NoError(t, err)
	require.NoError(t, s.SignIn(ctx, token, "r"))

	key, err = s.CartKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cart:user:user-7", key)
	assert.Equal(t, "user-7", s.UserID(ctx))
}

func TestSession_UnreadableTokenFallsBackToGuestKey(t *testing.T) {
	ctx := context.Background()
	s := NewSession(infraCache.NewMemoryCache(), time.Hour)
	require.NoError(t, s.SignIn(ctx, "opaque-token", ""))

	key, err := s.CartKey(ctx)
	require.NoError(t, err)
	assert.Contains(t, key, "cart:guest:")
}

type stubRequester struct {
	path string
	body interface{}
	resp model.LoginResponse
	err  error
}

func (s *stubRequester) Do(_ context.Context, method, path string, body, out interface{}) error {
	s.path = method + " " + path
	s.body = body
	if s.err != nil {
		return s.err
	}
	*(out.(*model.LoginResponse)) = s.resp
	return nil
}

func TestAuthenticator_Login(t *testing.T) {
	ctx := context.Background()
	s := NewSession(infraCache.NewMemoryCache(), time.Hour)
	req := &stubRequester{resp: model.LoginResponse{Access: "acc", Refresh: "ref"}}

	require.NoError(t, NewAuthenticator(req, s).Login(ctx, " shopper@example.com ", "pw"))

	assert.Equal(t, http.MethodPost+" "+loginPath, req.path)
	assert.Equal(t, model.LoginRequest{Email: "shopper@example.com", Password: "pw"}, req.body)
	access, refresh := s.Tokens(ctx)
	assert.Equal(t, "acc", access)
	assert.Equal(t, "ref", refresh)
}

func TestAuthenticator_LoginFailureKeepsGuest(t *testing.T) {
	ctx := context.Background()
	s := NewSession(infraCache.NewMemoryCache(), time.Hour)
	req := &stubRequester{err: errors.New("bad credentials")}

	assert.Error(t, NewAuthenticator(req, s).Login(ctx, "a@b.co", "pw"))
	assert.False(t, s.IsAuthenticated(ctx))
	assert.Error(t, NewAuthenticator(req, s).Login(ctx, "", "pw"))
}
