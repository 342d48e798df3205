package capability

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pitabwire/tabula/model"
)

type cacheEntry struct {
	caps    model.CapabilitySet
	expires time.Time
}

// Resolver resolves the capabilities of a request and caches them per role
// set for ttl.
type Resolver struct {
	policy Policy
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewResolver creates a Resolver over policy. A non-positive ttl disables
// caching.
func NewResolver(policy Policy, ttl time.Duration) *Resolver {
	return &Resolver{
		policy: policy,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

func cacheKey(roles []string) string {
	sorted := slices.Clone(roles)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// Resolve returns the capability set of the caller. A nil context resolves
// to the empty set.
func (r *Resolver) Resolve(rctx *model.RequestContext) model.CapabilitySet {
	if rctx == nil {
		return model.CapabilitySet{}
	}
	if r.ttl <= 0 {
		return r.policy.Capabilities(rctx.Roles)
	}

	key := cacheKey(rctx.Roles)
	now := r.now()

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.caps
	}

	caps := r.policy.Capabilities(rctx.Roles)
	r.mu.Lock()
	r.cache[key] = cacheEntry{caps: caps, expires: now.Add(r.ttl)}
	r.mu.Unlock()
	return caps
}

// Invalidate drops every cached entry, e.g. after the policy is reloaded.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	clear(r.cache)
	r.mu.Unlock()
}
