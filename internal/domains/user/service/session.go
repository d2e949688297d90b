package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domains/user/model"
	"storefront/pkg/cache"
	"storefront/pkg/jwt"
	"storefront/pkg/logger"
)

const (
	keyTokens  = "session:tokens"
	keyGuestID = "session:guest_id"
)

// Session owns the shopper's identity on this client: the persisted guest
// identifier and, once signed in, the access/refresh token pair.
type Session struct {
	store cache.Cache
	ttl   time.Duration

	mu      sync.Mutex
	loaded  bool
	tokens  model.Tokens
	guestID string
}

func NewSession(store cache.Cache, ttl time.Duration) *Session {
	return &Session{store: store, ttl: ttl}
}

// load reads tokens from storage once. Caller holds s.mu.
func (s *Session) load(ctx context.Context) {
	if s.loaded {
		return
	}
	if _, err := s.store.Get(ctx, keyTokens, &s.tokens); err != nil {
		logger.Error("load session tokens failed", err)
	}
	s.loaded = true
}

// SignIn stores a freshly issued token pair
func (s *Session) SignIn(ctx context.Context, access, refresh string) error {
	if access == "" {
		return fmt.Errorf("access token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := model.Tokens{Access: access, Refresh: refresh, StoredAt: time.Now()}
	if err := s.store.Set(ctx, keyTokens, tokens, s.ttl); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.tokens = tokens
	s.loaded = true
	return nil
}

func (s *Session) Tokens(ctx context.Context) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	return s.tokens.Access, s.tokens.Refresh
}

func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	tokens := s.tokens
	tokens.Access = access
	if refresh != "" {
		tokens.Refresh = refresh
	}
	tokens.StoredAt = time.Now()

	if err := s.store.Set(ctx, keyTokens, tokens, s.ttl); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	s.tokens = tokens
	return nil
}

// GuestID returns the persisted guest identifier, generating a new uuid the
// first time this client is used.
func (s *Session) GuestID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guestID != "" {
		return s.guestID, nil
	}

	var stored string
	found, err := s.store.Get(ctx, keyGuestID, &stored)
	if err != nil {
		return "", fmt.Errorf("load guest id: %w", err)
	}
	if found {
		if _, err := uuid.Parse(stored); err == nil {
			s.guestID = stored
			return stored, nil
		}
		logger.Warn("stored guest id is not a uuid, regenerating", map[string]interface{}{"guest_id": stored})
	}

	id := uuid.New().String()
	if err := s.store.Set(ctx, keyGuestID, id, 0); err != nil {
		return "", fmt.Errorf("persist guest id: %w", err)
	}
	s.guestID = id
	return id, nil
}

// Clear drops all local auth state. The guest identifier survives: it
// identifies this client, not the signed-in user.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = model.Tokens{}
	s.loaded = true
	if err := s.store.Delete(ctx, keyTokens); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

func (s *Session) IsAuthenticated(ctx context.Context) bool {
	access, _ := s.Tokens(ctx)
	return access != ""
}

// UserID is read from the access token claims, "" for guests or unreadable tokens
func (s *Session) UserID(ctx context.Context) string {
	access, _ := s.Tokens(ctx)
	if access == "" {
		return ""
	}
	claims, err := jwt.ReadClaims(access)
	if err != nil {
		logger.Warn("unreadable access token", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return claims.UserID
}

// CartKey names the storage slot of the cart snapshot for the current shopper.
func (s *Session) CartKey(ctx context.Context) (string, error) {
	if userID := s.UserID(ctx); userID != "" {
		return "cart:user:" + userID, nil
	}
	guestID, err := s.GuestID(ctx)
	if err != nil {
		return "", err
	}
	return "cart:guest:" + guestID, nil
}
