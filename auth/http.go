package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/authflow"
	"github.com/goliatone/go-starter/middleware/jwtware"
)

const (
	// ClaimsContextKey is the locals key the session claims live under
	ClaimsContextKey = "session"
	// TemplateUserKey is the locals key views read the signed in user from
	TemplateUserKey  = "current_user"
	DefaultLoginPath = "/login"
)

// HTTPConfig configures the session cookie and redirects.
type HTTPConfig struct {
	CookieName string
	Secure     bool
	Expiration time.Duration
	LoginPath  string
}

// RouteAuthenticator connects the Auther to HTTP: it owns the session
// cookie and the middleware guarding routes.
type RouteAuthenticator struct {
	auth             *Auther
	cfg              HTTPConfig
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error

	// UserLoader resolves the signed in user for templates. Defaults to
	// Auther.CurrentUser.
	UserLoader func(c router.Context, claims *JWTClaims) (*User, error)
}

func NewHTTPAuthenticator(auther *Auther, cfg HTTPConfig) *RouteAuthenticator {
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = auther.TokenService().Expiration()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}

	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a
}

func (a *RouteAuthenticator) Auther() *Auther {
	return a.auth
}

func (a *RouteAuthenticator) CookieName() string {
	return a.cfg.CookieName
}

// ProtectedRoute rejects requests without a valid session.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return jwtware.New(a.sessionConfig(a.makeAuthErrorHandler(false)))
}

// OptionalSession loads the session when present and never rejects.
func (a *RouteAuthenticator) OptionalSession() router.MiddlewareFunc {
	return jwtware.New(a.sessionConfig(a.makeAuthErrorHandler(true)))
}

func (a *RouteAuthenticator) sessionConfig(errorHandler router.ErrorHandler) jwtware.Config {
	return jwtware.Config{
		TokenValidator:  a.auth.TokenService().Validator(),
		ContextKey:      ClaimsContextKey,
		TokenLookup:     "cookie:" + a.cfg.CookieName + ",header:" + router.HeaderAuthorization,
		ErrorHandler:    errorHandler,
		TemplateUserKey: TemplateUserKey,
		UserProvider: func(ctx router.Context, claims jwtware.Claims) (any, error) {
			jc, ok := claims.(*JWTClaims)
			if !ok {
				return nil, ErrTokenMalformed
			}
			if a.UserLoader != nil {
				return a.UserLoader(ctx, jc)
			}
			return a.auth.CurrentUser(ctx.Context(), jc)
		},
	}
}

// SetSession writes the session cookie.
func (a *RouteAuthenticator) SetSession(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.cfg.Expiration),
		HTTPOnly: true,
		Secure:   a.cfg.Secure,
		SameSite: "Lax",
	})
}

// Logout clears the session cookie.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	if claims, ok := ClaimsFrom(ctx); ok {
		a.auth.Logout(ctx.Context(), claims.UserID())
	}
	a.cookieDel(ctx, a.cfg.CookieName)
}

// ClaimsFrom returns the claims stored by ProtectedRoute or OptionalSession.
func ClaimsFrom(ctx router.Context) (*JWTClaims, bool) {
	claims, ok := ctx.Locals(ClaimsContextKey).(*JWTClaims)
	return claims, ok && claims != nil
}

func (a *RouteAuthenticator) makeAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		switch {
		case errors.Is(err, ErrTokenExpired):
			richErr = ErrTokenExpired
		case errors.As(err, &richErr):
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Debug("optional session not loaded", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.Secure,
		SameSite: "Lax",
	})
}

// LoginRedirect is the login URL that returns to target afterwards.
func (a *RouteAuthenticator) LoginRedirect(target string) string {
	target = authflow.ResolveRedirect(target, authflow.DefaultRedirect)
	return a.cfg.LoginPath + "?" + authflow.RedirectQueryParam + "=" + url.QueryEscape(target)
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.cookieDel(c, a.cfg.CookieName)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.LoginRedirect(c.OriginalURL()), statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		code := richErr.Code
		if code == 0 {
			code = errors.CodeInternal
		}
		return c.Status(code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
