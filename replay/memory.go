package replay

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard remembers accepted request ids in process memory. Suitable
// for a single instance; use RedisGuard when several instances verify
// requests.
type MemoryGuard struct {
	mu        sync.Mutex
	ttl       time.Duration
	seen      map[string]time.Time
	nextSweep time.Time
	now       func() time.Time
}

// NewMemoryGuard returns a guard remembering ids for ttl. A zero ttl uses
// DefaultTTL.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryGuard{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen records requestID and reports whether it was already recorded and
// not yet expired. Expired ids are swept at most once per ttl.
func (g *MemoryGuard) Seen(_ context.Context, requestID string) (bool, error) {
	if requestID == "" {
		return false, ErrEmptyRequestID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if !now.Before(g.nextSweep) {
		g.sweep(now)
		g.nextSweep = now.Add(g.ttl)
	}

	if expires, ok := g.seen[requestID]; ok && now.Before(expires) {
		return true, nil
	}

	g.seen[requestID] = now.Add(g.ttl)

	return false, nil
}

func (g *MemoryGuard) sweep(now time.Time) {
	for id, expires := range g.seen {
		if !now.Before(expires) {
			delete(g.seen, id)
		}
	}
}

// Len returns the number of remembered ids, expired ones included until
// the next sweep.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.seen)
}
