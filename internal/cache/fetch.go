package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/model"
)

// FetchCache stores candidate lists per exact query string
type FetchCache struct {
	backend Cache
	ttl     time.Duration
	now     func() time.Time
}

type fetchEntry struct {
	Candidates []model.Candidate `json:"candidates"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// NewFetchCache wraps a backend. A nil backend disables caching.
func NewFetchCache(backend Cache, ttl time.Duration) *FetchCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &FetchCache{backend: backend, ttl: ttl, now: time.Now}
}

// Get returns the cached candidates for key, or false on a miss.
// Entries older than the TTL are misses even if the backend still holds them.
func (f *FetchCache) Get(key string) ([]model.Candidate, bool) {
	if f == nil || f.backend == nil {
		return nil, false
	}

	raw, ok := f.backend.Get(key)
	if !ok {
		return nil, false
	}

	var entry fetchEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = f.backend.Delete(key)
		return nil, false
	}

	if f.now().Sub(entry.FetchedAt) > f.ttl {
		return nil, false
	}

	return entry.Candidates, true
}

// Put stores candidates under key with the current timestamp
func (f *FetchCache) Put(key string, candidates []model.Candidate) error {
	if f == nil || f.backend == nil {
		return nil
	}

	if candidates == nil {
		candidates = []model.Candidate{}
	}
	raw, err := json.Marshal(fetchEntry{Candidates: candidates, FetchedAt: f.now()})
	if err != nil {
		return err
	}
	return f.backend.Set(key, raw, f.ttl)
}

// Fetch is the read-through path: return the cached list, or call load and
// store its result. Empty results are not cached so a transient outage
// does not pin an empty answer for a whole TTL window.
func (f *FetchCache) Fetch(ctx context.Context, key string, load func(context.Context) []model.Candidate) []model.Candidate {
	if cached, ok := f.Get(key); ok {
		zap.L().Debug("cache: hit", zap.String("key", key), zap.Int("candidates", len(cached)))
		return cached
	}

	fresh := load(ctx)
	if len(fresh) > 0 {
		if err := f.Put(key, fresh); err != nil {
			zap.L().Warn("cache: store failed", zap.String("key", key), zap.Error(err))
		}
	}
	return fresh
}
