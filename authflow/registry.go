package authflow

import (
	"sync/atomic"
	"time"

	"github.com/goliatone/go-starter/querycache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Kind distinguishes the forms a client can have open.
type Kind string

const (
	KindLogin    Kind = "login"
	KindRegister Kind = "register"
)

// ParseKind defaults to KindLogin for anything unknown.
func ParseKind(s string) Kind {
	if Kind(s) == KindRegister {
		return KindRegister
	}
	return KindLogin
}

type registryEntry struct {
	form     *Form
	lastUsed atomic.Int64
}

// Registry keeps one Form per browser client and kind, so the busy guard
// holds across requests from the same client.
type Registry struct {
	forms  *xsync.MapOf[string, *registryEntry]
	client Client
	cache  Cache
	opts   []FormOption
	now    func() time.Time
}

// NewRegistry creates an empty registry. Every form it builds invalidates
// the current user key of its client on success.
func NewRegistry(client Client, cache Cache, opts ...FormOption) *Registry {
	return &Registry{
		forms:  xsync.NewMapOf[string, *registryEntry](),
		client: client,
		cache:  cache,
		opts:   opts,
		now:    time.Now,
	}
}

// Get returns the form for clientID, creating it on first use.
func (r *Registry) Get(clientID string, kind Kind) *Form {
	entry, _ := r.forms.LoadOrCompute(registryKey(clientID, kind), func() *registryEntry {
		opts := append([]FormOption{WithCacheKey(querycache.CurrentUserKey(clientID))}, r.opts...)
		return &registryEntry{form: NewForm(r.client, r.cache, opts...)}
	})
	entry.lastUsed.Store(r.now().UnixNano())
	return entry.form
}

// Release forgets the idle forms of clientID. Called once the client has
// navigated away after signing in. A form with a request in flight, for
// example a register submit racing a login, is kept so its busy guard
// still holds.
func (r *Registry) Release(clientID string) {
	for _, kind := range []Kind{KindLogin, KindRegister} {
		r.dropIdle(registryKey(clientID, kind), nil)
	}
}

// Reset releases the forms of clientID and drops its cached current user.
// Used when the session changes outside a form submission.
func (r *Registry) Reset(clientID string) {
	r.Release(clientID)
	if r.cache != nil {
		r.cache.Invalidate(querycache.CurrentUserKey(clientID))
	}
}

// Prune drops idle forms not used within maxIdle. Forms with a request in
// flight are kept.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle).UnixNano()
	removed := 0
	r.forms.Range(func(key string, entry *registryEntry) bool {
		if r.dropIdle(key, func(e *registryEntry) bool { return e.lastUsed.Load() < cutoff }) {
			removed++
		}
		return true
	})
	return removed
}

// dropIdle deletes key when its form is idle and match, if set, agrees.
func (r *Registry) dropIdle(key string, match func(*registryEntry) bool) bool {
	dropped := false
	r.forms.Compute(key, func(entry *registryEntry, loaded bool) (*registryEntry, bool) {
		if !loaded {
			return entry, true
		}
		if entry.form.State() != Idle || (match != nil && !match(entry)) {
			return entry, false
		}
		dropped = true
		return entry, true
	})
	return dropped
}

// Len returns the number of tracked forms.
func (r *Registry) Len() int {
	return r.forms.Size()
}

func registryKey(clientID string, kind Kind) string {
	return clientID + "|" + string(kind)
}
