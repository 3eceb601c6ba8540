// Package auth signs users in through pluggable identity providers and
// verifies the bearer tokens they carry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"talkbot/internal/sessioncache"
)

var (
	ErrNotSignedIn      = errors.New("auth: not signed in")
	ErrUnknownProvider  = errors.New("auth: unknown provider")
	ErrWeakPassword     = errors.New("auth: password should be at least 6 characters")
	ErrInvalidToken     = errors.New("auth: invalid token")
	ErrMissingEmail     = errors.New("auth: email is required")
	ErrSignInInProgress = errors.New("auth: sign-in already in progress")
)

// Identity is the signed-in user.
type Identity struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
}

// Name is the display name, falling back to the email's local part.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if local, _, ok := strings.Cut(i.Email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

// Token is a bearer token and its expiry. A zero ExpiresAt never expires.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

func (t Token) Expired(now time.Time) bool {
	return t.Value == "" || (!t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt))
}

// Provider performs one sign-in against an identity provider.
type Provider interface {
	SignIn(ctx context.Context) (Identity, Token, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Identity, Token, error)

func (f ProviderFunc) SignIn(ctx context.Context) (Identity, Token, error) { return f(ctx) }

// Controller is what the rest of the application sees of authentication.
type Controller interface {
	SignIn(ctx context.Context, provider string) (Identity, error)
	SignOut(ctx context.Context) error
	CurrentUser() (Identity, bool)
	Token() (Token, bool)
}

// Cache persists an advisory copy of the session between processes.
type Cache interface {
	Save(ctx context.Context, e sessioncache.Entry) error
	Load(ctx context.Context) (sessioncache.Entry, error)
	Clear(ctx context.Context) error
}

// SessionConfig wires a Session. Cache and Logger are optional.
type SessionConfig struct {
	Providers map[string]Provider
	Cache     Cache
	Logger    *slog.Logger
	Now       func() time.Time
}

// Session is the Controller implementation. It holds at most one signed-in
// identity and is safe for concurrent use.
type Session struct {
	providers map[string]Provider
	cache     Cache
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	identity Identity
	token    Token
	signedIn bool
	pending  bool
}

var _ Controller = (*Session)(nil)

func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("auth: at least one provider is required")
	}
	s := &Session{
		providers: make(map[string]Provider, len(cfg.Providers)),
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	for name, p := range cfg.Providers {
		name = strings.TrimSpace(name)
		if name == "" || p == nil {
			return nil, fmt.Errorf("auth: invalid provider %q", name)
		}
		s.providers[name] = p
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Providers lists the registered provider names in sorted order.
func (s *Session) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SignIn runs the named provider. Concurrent sign-ins are rejected rather
// than queued. On success the identity is written to the cache; a cache
// failure is logged and does not fail the sign-in.
func (s *Session) SignIn(ctx context.Context, provider string) (Identity, error) {
	p, ok := s.providers[provider]
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return Identity{}, ErrSignInInProgress
	}
	s.pending = true
	s.mu.Unlock()

	id, tok, err := p.SignIn(ctx)

	s.mu.Lock()
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		return Identity{}, fmt.Errorf("auth: sign in with %s: %w", provider, err)
	}
	if strings.TrimSpace(id.UID) == "" {
		s.mu.Unlock()
		return Identity{}, fmt.Errorf("auth: sign in with %s: provider returned no uid", provider)
	}
	s.identity, s.token, s.signedIn = id, tok, true
	s.mu.Unlock()

	if s.cache != nil {
		entry := sessioncache.Entry{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			PhotoURL:    id.PhotoURL,
			Token:       tok.Value,
			ExpiresAt:   tok.ExpiresAt,
		}
		if err := s.cache.Save(ctx, entry); err != nil {
			s.logger.Warn("session cache write failed", "uid", id.UID, "err", err)
		}
	}
	s.logger.Info("signed in", "uid", id.UID, "provider", provider)
	return id, nil
}

// Restore adopts a cached session, if one exists and its token has not
// expired. The cache is advisory: a failed read is logged and reported as
// ErrNotSignedIn.
func (s *Session) Restore(ctx context.Context) (Identity, error) {
	if s.cache == nil {
		return Identity{}, ErrNotSignedIn
	}
	e, err := s.cache.Load(ctx)
	if errors.Is(err, sessioncache.ErrNotFound) {
		return Identity{}, ErrNotSignedIn
	}
	if err != nil {
		s.logger.Warn("session cache read failed", "err", err)
		return Identity{}, ErrNotSignedIn
	}
	tok := Token{Value: e.Token, ExpiresAt: e.ExpiresAt}
	if tok.Expired(s.now()) {
		return Identity{}, ErrNotSignedIn
	}

	id := Identity{UID: e.UID, Email: e.Email, DisplayName: e.DisplayName, PhotoURL: e.PhotoURL}
	s.mu.Lock()
	s.identity, s.token, s.signedIn = id, tok, true
	s.mu.Unlock()
	return id, nil
}

// SignOut forgets the identity and clears the cache. Signing out while
// signed out is a no-op.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	uid := s.identity.UID
	s.identity, s.token, s.signedIn = Identity{}, Token{}, false
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			return fmt.Errorf("auth: sign out: %w", err)
		}
	}
	if uid != "" {
		s.logger.Info("signed out", "uid", uid)
	}
	return nil
}

func (s *Session) CurrentUser() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.signedIn
}

// Token returns the bearer token while it is still valid.
func (s *Session) Token() (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signedIn || s.token.Expired(s.now()) {
		return Token{}, false
	}
	return s.token, true
}

// BearerToken returns the current token value or ErrNotSignedIn.
func (s *Session) BearerToken(context.Context) (string, error) {
	tok, ok := s.Token()
	if !ok {
		return "", ErrNotSignedIn
	}
	return tok.Value, nil
}
