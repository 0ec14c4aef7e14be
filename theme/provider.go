package theme

import (
	"sync"

	"github.com/goliatone/go-errors"
)

// Storage is the persistent slot holding the preference between visits.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ColorScheme exposes the platform's dark mode preference.
type ColorScheme interface {
	PrefersDark() bool
}

// ClassList is the set of classes on the document root.
type ClassList interface {
	Remove(classes ...string)
	Add(class string)
}

// Provider owns the current theme, keeps storage in sync and applies the
// resolved class to the document root on every change.
type Provider struct {
	mu         sync.Mutex
	theme      Theme
	loaded     bool
	storageKey string
	fallback   Theme
	storage    Storage
	scheme     ColorScheme
	root       ClassList
}

// Option configures a Provider.
type Option func(*Provider)

// WithStorageKey overrides DefaultStorageKey.
func WithStorageKey(key string) Option {
	return func(p *Provider) {
		if key != "" {
			p.storageKey = key
		}
	}
}

// WithDefault sets the theme used when storage holds nothing usable.
func WithDefault(t Theme) Option {
	return func(p *Provider) {
		if t.Valid() {
			p.fallback = t
		}
	}
}

// WithColorScheme sets the platform preference source.
func WithColorScheme(scheme ColorScheme) Option {
	return func(p *Provider) {
		p.scheme = scheme
	}
}

// NewProvider builds a provider in the initial System state and applies it
// to root right away. The stored preference only shows up after Load, so a
// page rendered before that reflects System.
func NewProvider(storage Storage, root ClassList, opts ...Option) (*Provider, error) {
	if storage == nil || root == nil {
		return nil, ErrNoProvider
	}

	p := &Provider{
		theme:      System,
		storageKey: DefaultStorageKey,
		fallback:   System,
		storage:    storage,
		root:       root,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.apply()

	return p, nil
}

// Load reads the stored preference once. Empty, unknown or unreadable
// values fall back to the configured default. Later calls are no-ops.
func (p *Provider) Load() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.theme
	}
	p.loaded = true

	next := p.fallback
	if raw, ok, err := p.storage.Get(p.storageKey); err == nil && ok {
		if t, err := Parse(raw); err == nil {
			next = t
		}
	}

	p.theme = next
	p.apply()

	return p.theme
}

// Theme returns the current preference.
func (p *Provider) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Resolved returns the class currently applied to the root.
func (p *Provider) Resolved() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme.Resolve(p.scheme)
}

// SetTheme persists t and then makes it current. When the write fails
// the in-memory state is left untouched.
func (p *Provider) SetTheme(t Theme) error {
	if !t.Valid() {
		return ErrInvalidTheme
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.storage.Set(p.storageKey, string(t)); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist theme").
			WithMetadata(map[string]any{"key": p.storageKey})
	}

	p.theme = t
	p.loaded = true
	p.apply()

	return nil
}

// apply expects p.mu held, or p not yet shared.
func (p *Provider) apply() {
	p.root.Remove(string(Light), string(Dark))
	p.root.Add(string(p.theme.Resolve(p.scheme)))
}
