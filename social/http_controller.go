package social

import (
	"net/http"
	"net/url"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/authflow"
)

// SessionWriter stores a signed session on the response.
type SessionWriter interface {
	SetSession(ctx router.Context, token string)
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth/social")
	PathPrefix string

	// ErrorRedirect receives failed sign ins with the message in the
	// error query parameter (default: "/login")
	ErrorRedirect string

	// AfterLogin runs once the session cookie is set, before the redirect.
	AfterLogin func(ctx router.Context, result *AuthResult)

	Logger Logger
}

// HTTPController handles the provider facing social routes.
type HTTPController struct {
	authenticator *SocialAuthenticator
	sessions      SessionWriter
	config        HTTPConfig
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(sa *SocialAuthenticator, sessions SessionWriter, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth/social"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = auth.DefaultLoginPath
	}
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}

	return &HTTPController{
		authenticator: sa,
		sessions:      sessions,
		config:        cfg,
	}
}

// RegisterRoutes registers social auth routes. protected guards the
// account listing.
func RegisterRoutes[T any](app router.Router[T], c *HTTPController, protected router.MiddlewareFunc) {
	p := c.config.PathPrefix

	app.Get(p+"/providers", c.ListProviders).
		SetName("social.providers")

	app.Get(p+"/accounts", c.ListAccounts, protected).
		SetName("social.accounts")

	app.Get(p+"/:provider/callback", c.Callback).
		SetName("social.callback")

	app.Get(p+"/:provider", c.BeginAuth).
		SetName("social.begin")
}

// ListProviders returns available social providers.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"providers": c.authenticator.Providers(),
	})
}

// BeginAuth is the link based entry point; forms post to the auth
// controller instead.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	target := authflow.ResolveRedirect(ctx.Query(authflow.RedirectQueryParam), authflow.DefaultRedirect)

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), ctx.Param("provider"), auth.ClientIDFrom(ctx), target)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusSeeOther)
}

// Callback handles the OAuth callback.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")

	if code := ctx.Query("error"); code != "" {
		c.config.Logger.Info("provider denied sign in",
			"provider", providerName,
			"error", code,
			"description", ctx.Query("error_description"),
		)
		return c.handleError(ctx, ErrProviderDenied)
	}

	code, state := ctx.Query("code"), ctx.Query("state")
	if code == "" || state == "" {
		return c.handleError(ctx, ErrInvalidState)
	}

	result, err := c.authenticator.CompleteAuth(ctx.Context(), providerName, code, state, auth.ClientIDFrom(ctx))
	if err != nil {
		return c.handleError(ctx, err)
	}

	c.sessions.SetSession(ctx, result.Token)

	if c.config.AfterLogin != nil {
		c.config.AfterLogin(ctx, result)
	}

	return ctx.Redirect(authflow.ResolveRedirect(result.RedirectURL, authflow.DefaultRedirect), http.StatusSeeOther)
}

// ListAccounts returns linked social accounts for the current user.
func (c *HTTPController) ListAccounts(ctx router.Context) error {
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authentication required",
		})
	}

	accounts, err := c.authenticator.accounts.FindByUserID(ctx.Context(), claims.UserID())
	if err != nil {
		return c.handleError(ctx, err)
	}

	response := make([]map[string]any, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, map[string]any{
			"id":               acc.ID,
			"provider":         acc.Provider,
			"provider_user_id": acc.ProviderUserID,
			"email":            acc.Email,
			"name":             acc.Name,
			"avatar_url":       acc.AvatarURL,
			"created_at":       acc.CreatedAt,
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"accounts": response,
	})
}

func (c *HTTPController) handleError(ctx router.Context, err error) error {
	c.config.Logger.Error("social sign in failed", "error", err)

	message := "Something went wrong, please try again"
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category != errors.CategoryInternal {
		message = richErr.Message
	}

	return ctx.Redirect(c.config.ErrorRedirect+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}
