// Package budget enforces the daily spending ceiling for paid analysis calls.
package budget

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Governor tracks cumulative spend in cents against a fixed ceiling.
// Charge is atomic: concurrent callers can never jointly exceed the ceiling.
type Governor struct {
	ceiling   int64
	spent     atomic.Int64
	denied    atomic.Int64
	exhausted atomic.Bool
}

// NewGovernor creates a governor with the given ceiling in cents.
// A ceiling <= 0 denies every paid call.
func NewGovernor(ceilingCents int64) *Governor {
	if ceilingCents < 0 {
		ceilingCents = 0
	}
	return &Governor{ceiling: ceilingCents}
}

// Charge reserves cost cents. It returns false, reserving nothing, when the
// running total plus cost would exceed the ceiling.
func (g *Governor) Charge(cost int64) bool {
	if cost < 0 {
		cost = 0
	}
	for {
		cur := g.spent.Load()
		if cost > g.ceiling-cur {
			g.denied.Add(1)
			if g.exhausted.CompareAndSwap(false, true) {
				zap.L().Warn("budget: daily ceiling reached, falling back to heuristics",
					zap.Int64("spent_cents", cur),
					zap.Int64("ceiling_cents", g.ceiling),
					zap.Int64("requested_cents", cost),
				)
			}
			return false
		}
		if g.spent.CompareAndSwap(cur, cur+cost) {
			return true
		}
	}
}

// Affordable reports whether cost fits in what remains, without reserving
// it or counting a denial
func (g *Governor) Affordable(cost int64) bool {
	if cost < 0 {
		cost = 0
	}
	return cost <= g.Remaining()
}

// Refund returns cost cents reserved by a Charge whose call never happened.
// Spend never drops below zero.
func (g *Governor) Refund(cost int64) {
	if cost <= 0 {
		return
	}
	for {
		cur := g.spent.Load()
		next := cur - cost
		if next < 0 {
			next = 0
		}
		if g.spent.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Spent returns the cents charged so far
func (g *Governor) Spent() int64 {
	return g.spent.Load()
}

// Remaining returns the cents still available
func (g *Governor) Remaining() int64 {
	return g.ceiling - g.spent.Load()
}

// Ceiling returns the configured ceiling
func (g *Governor) Ceiling() int64 {
	return g.ceiling
}

// Denied returns how many charges were refused
func (g *Governor) Denied() int64 {
	return g.denied.Load()
}

// Exhausted reports whether any charge has been refused
func (g *Governor) Exhausted() bool {
	return g.exhausted.Load()
}
