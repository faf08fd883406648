package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/papertoplan/ptp/internal/models"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// DefaultUserCacheTTL is how long a fetched user list counts as fresh.
const DefaultUserCacheTTL = 10 * time.Minute

// UserCache keeps the last known backend user list for the local PIN
// pre-check. Entries live in memory with a TTL and are mirrored to the
// cached_users table so they survive restarts. The cache is advisory: the
// backend decides whether a login succeeds.
type UserCache struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration

	mu        sync.Mutex
	fetchedAt time.Time
}

// NewUserCache creates a UserCache. A non-positive ttl uses DefaultUserCacheTTL.
func NewUserCache(db *gorm.DB, ttl time.Duration) (*UserCache, error) {
	if db == nil {
		return nil, fmt.Errorf("session: user cache: db is required")
	}
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &UserCache{
		db:    db,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}, nil
}

// Replace swaps the cached list for users, both in memory and on disk.
func (c *UserCache) Replace(users []models.CachedUser) error {
	now := time.Now()
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CachedUser{}).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		rows := make([]models.CachedUser, len(users))
		for i, u := range users {
			rows[i] = models.CachedUser{Username: u.Username, Pin: u.Pin, FetchedAt: now}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("session: user cache: replace: %w", err)
	}

	c.cache.Flush()
	for _, u := range users {
		c.cache.Set(u.Username, u.Pin, cache.DefaultExpiration)
	}
	c.mu.Lock()
	c.fetchedAt = now
	c.mu.Unlock()
	return nil
}

// Lookup returns the cached pin for username. Memory is checked first, then
// the persisted copy, which may be older than the TTL.
func (c *UserCache) Lookup(username string) (string, bool, error) {
	if v, found := c.cache.Get(username); found {
		if pin, ok := v.(string); ok {
			return pin, true, nil
		}
	}
	var rows []models.CachedUser
	if err := c.db.Where("username = ?", username).Limit(1).Find(&rows).Error; err != nil {
		return "", false, fmt.Errorf("session: user cache: lookup %s: %w", username, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	c.cache.Set(username, rows[0].Pin, cache.DefaultExpiration)
	return rows[0].Pin, true, nil
}

// Usernames lists the cached usernames in alphabetical order.
func (c *UserCache) Usernames() ([]string, error) {
	var names []string
	if err := c.db.Model(&models.CachedUser{}).Order("username").Pluck("username", &names).Error; err != nil {
		return nil, fmt.Errorf("session: user cache: list: %w", err)
	}
	return names, nil
}

// Fresh reports whether the list was replaced within the TTL.
func (c *UserCache) Fresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl
}
