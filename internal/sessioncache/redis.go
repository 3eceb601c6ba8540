// Package sessioncache keeps an advisory copy of the signed-in user so a
// later process can show who is signed in without asking the identity
// provider again. It is never the source of truth for authentication.
package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "talkbot/internal/redis"
)

const (
	keyPrefix  = "talkbot:session:"
	defaultTTL = 7 * 24 * time.Hour
)

// ErrNotFound is returned when nothing is cached for the slot.
var ErrNotFound = errors.New("sessioncache: not found")

// Entry is the cached session.
type Entry struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Token       string    `json:"token,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	SavedAt     time.Time `json:"savedAt"`
}

// Config configures the Redis cache.
type Config struct {
	Client redisclient.Client
	// Slot names the local session, typically the OS user or a device id.
	Slot string
	TTL  time.Duration
	Now  func() time.Time
}

func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.New("sessioncache: redis client is required")
	}
	if strings.TrimSpace(c.Slot) == "" {
		return errors.New("sessioncache: slot is required")
	}
	return nil
}

// Redis stores one Entry per slot as JSON with a TTL.
type Redis struct {
	client redisclient.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedis(cfg Config) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Redis{
		client: cfg.Client,
		key:    keyPrefix + strings.TrimSpace(cfg.Slot),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if r.ttl <= 0 {
		r.ttl = defaultTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Save replaces the cached entry. An entry whose token expires sooner than
// the TTL expires with it.
func (r *Redis) Save(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.UID) == "" {
		return errors.New("sessioncache: uid is required")
	}
	now := r.now()
	e.SavedAt = now.UTC()

	ttl := r.ttl
	if !e.ExpiresAt.IsZero() {
		left := e.ExpiresAt.Sub(now)
		if left <= 0 {
			return fmt.Errorf("sessioncache: entry for %s already expired", e.UID)
		}
		if left < ttl {
			ttl = left
		}
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("sessioncache: marshal entry: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("sessioncache: store entry: %w", err)
	}
	return nil
}

// Load returns the cached entry or ErrNotFound.
func (r *Redis) Load(ctx context.Context) (Entry, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sessioncache: load entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("sessioncache: decode entry: %w", err)
	}
	if !e.ExpiresAt.IsZero() && !r.now().Before(e.ExpiresAt) {
		_ = r.client.Del(ctx, r.key).Err()
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Clear removes the cached entry. Clearing an empty slot is not an error.
func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("sessioncache: clear entry: %w", err)
	}
	return nil
}
