package registry

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/madaniagency/licensee-checkout/internal/pkg/cache"
)

const licenseeCacheTTL = 5 * time.Minute

// CacheStore is the key/value surface CachedLookup needs from the cache.
type CacheStore interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// redisStore backs CacheStore with the shared Redis client.
type redisStore struct{}

func (redisStore) Get(key string) (string, error) { return cache.Get(key) }
func (redisStore) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

// CachedLookup fronts a Lookup with a short-lived cache so repeated steps of
// one upgrade don't rescan the spreadsheet. Only successful lookups are
// cached; cache failures fall through to the inner lookup.
type CachedLookup struct {
	Inner Lookup
	Store CacheStore
	TTL   time.Duration
}

func NewCachedLookup(inner Lookup) *CachedLookup {
	return &CachedLookup{Inner: inner, Store: redisStore{}, TTL: licenseeCacheTTL}
}

func (c *CachedLookup) GetLicensee(ctx context.Context, licenseeID string) (*LicenseeRecord, error) {
	key := cacheKey(licenseeID)

	if raw, err := c.Store.Get(key); err == nil && raw != "" {
		var rec LicenseeRecord
		if err := json.Unmarshal([]byte(raw), &rec); err == nil {
			return &rec, nil
		}
	}

	rec, err := c.Inner.GetLicensee(ctx, licenseeID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		ttl := c.TTL
		if ttl <= 0 {
			ttl = licenseeCacheTTL
		}
		// Best effort: a cache write failure never fails the lookup.
		_ = c.Store.Set(key, string(raw), ttl)
	}
	return rec, nil
}

func cacheKey(licenseeID string) string {
	return "licensee:" + strings.ToLower(strings.TrimSpace(licenseeID))
}
