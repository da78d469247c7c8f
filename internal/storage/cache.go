// cache.go - In-memory cache for authenticated users

package storage

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// UserFinder loads a user by id
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
}

type cachedUser struct {
	user     User
	loadedAt time.Time
}

// UserCache keeps recently resolved users so every authenticated request
// does not hit the database. Concurrent misses for the same id share one
// lookup; the lock is never held while the finder runs.
type UserCache struct {
	finder  UserFinder
	ttl     time.Duration
	entries map[string]cachedUser
	mu      sync.RWMutex
	loads   singleflight.Group
	now     func() time.Time
}

// NewUserCache creates a cache in front of finder
func NewUserCache(finder UserFinder, ttl time.Duration) *UserCache {
	return &UserCache{
		finder:  finder,
		ttl:     ttl,
		entries: make(map[string]cachedUser),
		now:     time.Now,
	}
}

func (c *UserCache) lookup(id string) (*User, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.loadedAt) >= c.ttl {
		return nil, false
	}
	u := entry.user
	return &u, true
}

// Get returns the cached user or loads it. Lookup errors are not cached.
func (c *UserCache) Get(ctx context.Context, id string) (*User, error) {
	if u, ok := c.lookup(id); ok {
		return u, nil
	}

	v, err, _ := c.loads.Do(id, func() (interface{}, error) {
		// Another caller may have stored it while we waited
		if u, ok := c.lookup(id); ok {
			return *u, nil
		}

		user, err := c.finder.FindUserByID(ctx, id)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[id] = cachedUser{user: *user, loadedAt: c.now()}
		c.mu.Unlock()
		return *user, nil
	})
	if err != nil {
		return nil, err
	}
	u := v.(User)
	return &u, nil
}

// Invalidate removes one user
func (c *UserCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
