package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"washroom-tracker-client/internal/apiclient"
	"washroom-tracker-client/internal/model"
	"washroom-tracker-client/internal/store"
)

// ErrAuthenticationFailed is returned by SignIn for any failed credential exchange.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Authenticator exchanges credentials for an identity and bearer token.
type Authenticator interface {
	Login(ctx context.Context, name, employeeID string) (model.Identity, string, error)
}

// Store holds the signed-in identity and its bearer token, persisting both
// across restarts. At most one identity is held at a time.
type Store struct {
	kv    store.Store
	auth  Authenticator
	creds *apiclient.Credentials

	mu       sync.RWMutex
	identity *model.Identity
}

// NewStore creates a session store. creds is the credential holder shared
// with the API client; it is updated on every sign-in, sign-out and restore.
func NewStore(kv store.Store, auth Authenticator, creds *apiclient.Credentials) *Store {
	return &Store{kv: kv, auth: auth, creds: creds}
}

// Restore loads a persisted session. Missing keys, storage errors and
// undecodable records all leave the store signed out.
func (s *Store) Restore(ctx context.Context) {
	rawUser, okUser, err := s.kv.Get(ctx, store.KeyUser)
	if err != nil {
		log.Printf("Error loading stored user: %v", err)
		return
	}
	token, okToken, err := s.kv.Get(ctx, store.KeyToken)
	if err != nil {
		log.Printf("Error loading stored token: %v", err)
		return
	}
	if !okUser || !okToken || token == "" {
		return
	}

	var identity model.Identity
	if err := json.Unmarshal([]byte(rawUser), &identity); err != nil {
		log.Printf("Stored user could not be decoded, starting signed out: %v", err)
		return
	}

	s.install(&identity, token)
	log.Printf("Restored session for %s", identity.DisplayName)
}

// SignIn exchanges credentials with the backend and persists the result,
// replacing any previous session. On failure nothing is changed.
func (s *Store) SignIn(ctx context.Context, name, employeeID string) (model.Identity, error) {
	identity, token, err := s.auth.Login(ctx, name, employeeID)
	if err != nil {
		log.Printf("Authentication error: %v", err)
		return model.Identity{}, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	rawUser, err := json.Marshal(identity)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: failed to encode identity: %w", ErrAuthenticationFailed, err)
	}

	if err := s.kv.Put(ctx, map[string]string{
		store.KeyUser:  string(rawUser),
		store.KeyToken: token,
	}); err != nil {
		return model.Identity{}, fmt.Errorf("%w: failed to persist session: %w", ErrAuthenticationFailed, err)
	}

	s.install(&identity, token)
	return identity, nil
}

// SignOut clears the persisted session and the attached bearer. It always
// succeeds locally; storage errors are only logged.
func (s *Store) SignOut(ctx context.Context) {
	s.install(nil, "")
	if err := s.kv.Delete(ctx, store.KeyUser, store.KeyToken); err != nil {
		log.Printf("Sign out error: %v", err)
	}
}

// Current returns the signed-in identity.
func (s *Store) Current() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// TokenExpiry reports the exp claim of the bearer when it is a JWT. The
// token is not verified; the result is informational only.
func (s *Store) TokenExpiry() (time.Time, bool) {
	token := s.creds.Token()
	if token == "" {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (s *Store) install(identity *model.Identity, token string) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
	if token == "" {
		s.creds.Clear()
	} else {
		s.creds.Set(token)
	}
}
