package clients

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds one bearer token until it expires or is invalidated.
// Concurrent callers share a single fetch.
type TokenCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{ttl: ttl, now: time.Now}
}

// Get returns the cached token or calls fetch for a new one.
func (c *TokenCache) Get(ctx context.Context, fetch func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	token, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = c.now().Add(c.ttl)
	return token, nil
}

// Invalidate drops the token if it is still the one the caller saw rejected.
func (c *TokenCache) Invalidate(rejected string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rejected == "" || c.token == rejected {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}
