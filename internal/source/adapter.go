// Package source fetches candidate headlines from news-search upstreams and
// chains them in priority order.
package source

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/model"
)

// Adapter fetches candidate headlines for one query. Implementations bound
// their own timeout and report any failure as an error; the Chain turns that
// into "empty, try the next adapter".
type Adapter interface {
	Name() string
	Origin() model.Origin
	Fetch(ctx context.Context, query string, maxResults int) ([]model.Candidate, error)
}

// Breaker tracks per-adapter failures for one scan run. Once an adapter has
// failed it is skipped for the rest of the run. A nil *Breaker never trips.
type Breaker struct {
	mu     sync.Mutex
	failed map[string]int
}

// NewBreaker returns a breaker with every adapter healthy
func NewBreaker() *Breaker {
	return &Breaker{failed: make(map[string]int)}
}

// Tripped reports whether the adapter has failed in this run
func (b *Breaker) Tripped(name string) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed[name] > 0
}

// Trip records a failure for the adapter
func (b *Breaker) Trip(name string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.failed[name]++
	b.mu.Unlock()
}

// Failures returns a copy of the failure counts
func (b *Breaker) Failures() map[string]int {
	out := make(map[string]int)
	if b == nil {
		return out
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.failed {
		out[k] = v
	}
	return out
}

// Chain tries adapters in priority order
type Chain struct {
	adapters []Adapter
}

// NewChain builds a chain; nil adapters are ignored
func NewChain(adapters ...Adapter) *Chain {
	c := &Chain{}
	for _, a := range adapters {
		if a != nil {
			c.adapters = append(c.adapters, a)
		}
	}
	return c
}

// Names lists the adapters in priority order
func (c *Chain) Names() []string {
	names := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		names[i] = a.Name()
	}
	return names
}

// Adapters returns the adapters in priority order
func (c *Chain) Adapters() []Adapter {
	return append([]Adapter(nil), c.adapters...)
}

// Fetch returns the first non-empty result in priority order, capped at
// maxResults. Adapters tripped in b are skipped; an adapter that errors trips
// b. When every adapter fails or comes back empty the result is nil.
func (c *Chain) Fetch(ctx context.Context, query string, maxResults int, b *Breaker) []model.Candidate {
	for _, a := range c.adapters {
		if ctx.Err() != nil {
			return nil
		}
		if b.Tripped(a.Name()) {
			continue
		}

		items, err := a.Fetch(ctx, query, maxResults)
		if err != nil {
			b.Trip(a.Name())
			zap.L().Warn("source adapter failed, falling back",
				zap.String("adapter", a.Name()),
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		if len(items) == 0 {
			continue
		}
		if maxResults > 0 && len(items) > maxResults {
			items = items[:maxResults]
		}
		return items
	}
	return nil
}
