package theme

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	// HeaderPrefersColorScheme is the client hint carrying the platform preference.
	HeaderPrefersColorScheme = "Sec-CH-Prefers-Color-Scheme"
	// HeaderAcceptCH asks the browser to send client hints on later requests.
	HeaderAcceptCH = "Accept-CH"
)

// Locals keys exposed to views.
const (
	LocalsThemeKey = "theme"
	LocalsClassKey = "theme_class"
)

// FormFieldTheme is the field read by UpdateHandler.
const FormFieldTheme = "theme"

// Factory binds providers to requests. It is built once by the
// application and handed to the handlers that need it.
type Factory struct {
	storageKey   string
	fallback     Theme
	cookieMaxAge time.Duration
	secure       bool
	logger       Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryStorageKey sets the cookie name used as storage.
func WithFactoryStorageKey(key string) FactoryOption {
	return func(f *Factory) {
		if key != "" {
			f.storageKey = key
		}
	}
}

// WithFactoryDefault sets the fallback theme.
func WithFactoryDefault(t Theme) FactoryOption {
	return func(f *Factory) {
		if t.Valid() {
			f.fallback = t
		}
	}
}

// WithSecureCookie marks the storage cookie as Secure.
func WithSecureCookie(secure bool) FactoryOption {
	return func(f *Factory) {
		f.secure = secure
	}
}

// WithFactoryLogger sets the logger.
func WithFactoryLogger(l Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		storageKey:   DefaultStorageKey,
		fallback:     System,
		cookieMaxAge: 365 * 24 * time.Hour,
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// For builds a provider backed by the request's cookies and client hints.
// The returned RootClasses holds the classes to render on <html>.
func (f *Factory) For(ctx router.Context) (*Provider, *RootClasses, error) {
	root := &RootClasses{}
	p, err := NewProvider(
		&cookieStorage{ctx: ctx, maxAge: f.cookieMaxAge, secure: f.secure},
		root,
		WithStorageKey(f.storageKey),
		WithDefault(f.fallback),
		WithColorScheme(clientHint{ctx: ctx}),
	)
	if err != nil {
		return nil, nil, err
	}
	return p, root, nil
}

// Middleware loads the stored theme and exposes it to views.
func (f *Factory) Middleware() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			p, root, err := f.For(ctx)
			if err != nil {
				f.logger.Error("theme provider unavailable", "error", err)
				return ctx.Next()
			}

			p.Load()
			expose(ctx, p, root)
			ctx.SetHeader(HeaderAcceptCH, HeaderPrefersColorScheme)

			return ctx.Next()
		}
	}
}

// UpdateHandler persists the submitted theme and redirects back.
func (f *Factory) UpdateHandler(ctx router.Context) error {
	t, err := Parse(ctx.FormValue(FormFieldTheme))
	if err != nil {
		f.logger.Info("rejected theme update", "error", err)
		return ctx.Status(http.StatusBadRequest).SendString(ErrInvalidTheme.Message)
	}

	p, root, err := f.For(ctx)
	if err != nil {
		return err
	}

	if err := p.SetTheme(t); err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			f.logger.Error("theme update failed", "error", richErr.Message, "category", richErr.Category)
		}
		return ctx.Status(http.StatusInternalServerError).SendString("Unable to save theme")
	}

	expose(ctx, p, root)

	return ctx.Redirect(localTarget(ctx.FormValue("redirect")), http.StatusSeeOther)
}

func expose(ctx router.Context, p *Provider, root *RootClasses) {
	ctx.Locals(LocalsThemeKey, string(p.Theme()))
	ctx.Locals(LocalsClassKey, root.String())
}

func localTarget(raw string) string {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.Contains(raw, "\\") {
		return raw
	}
	return "/"
}

// RootClasses is an ordered class set standing in for <html class="">.
type RootClasses struct {
	classes []string
}

func (r *RootClasses) Remove(classes ...string) {
	kept := r.classes[:0]
	for _, c := range r.classes {
		drop := false
		for _, rm := range classes {
			if c == rm {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	r.classes = kept
}

func (r *RootClasses) Add(class string) {
	for _, c := range r.classes {
		if c == class {
			return
		}
	}
	r.classes = append(r.classes, class)
}

func (r *RootClasses) String() string {
	return strings.Join(r.classes, " ")
}

type cookieStorage struct {
	ctx    router.Context
	maxAge time.Duration
	secure bool
}

func (c *cookieStorage) Get(key string) (string, bool, error) {
	v := c.ctx.Cookies(key)
	return v, v != "", nil
}

func (c *cookieStorage) Set(key, value string) error {
	c.ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(c.maxAge),
		Secure:   c.secure,
		SameSite: "Lax",
	})
	return nil
}

type clientHint struct {
	ctx router.Context
}

func (h clientHint) PrefersDark() bool {
	v := strings.Trim(h.ctx.Header(HeaderPrefersColorScheme), `" `)
	return strings.EqualFold(v, "dark")
}
