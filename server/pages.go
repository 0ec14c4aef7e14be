package server

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/querycache"
)

// Pages renders the application pages outside the auth flow.
type Pages struct {
	auther   *auth.Auther
	httpAuth *auth.RouteAuthenticator
	users    *querycache.Cache[*auth.User]
}

func NewPages(httpAuth *auth.RouteAuthenticator, users *querycache.Cache[*auth.User]) *Pages {
	return &Pages{
		auther:   httpAuth.Auther(),
		httpAuth: httpAuth,
		users:    users,
	}
}

func (p *Pages) Home(ctx router.Context) error {
	return ctx.Render("home", router.ViewContext{
		"theme_redirect": "/",
	})
}

// Dashboard reads the signed in user through the current user query.
func (p *Pages) Dashboard(ctx router.Context) error {
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		return p.httpAuth.AuthErrorHandler(ctx, auth.ErrIdentityNotFound)
	}

	user, err := p.CurrentUser(ctx, claims)
	if err != nil {
		return p.httpAuth.ErrorHandler(ctx, err)
	}

	view := router.ViewContext{
		"user":           user,
		"theme_redirect": "/dashboard",
	}
	if user.LoggedInAt != nil {
		view["last_sign_in"] = user.LoggedInAt.Format("2006-01-02 15:04")
	}

	return ctx.Render("dashboard", view)
}

// CurrentUser serves the user from the per client cache. An entry left by
// a different account on the same browser is dropped and reloaded.
func (p *Pages) CurrentUser(ctx router.Context, claims *auth.JWTClaims) (*auth.User, error) {
	key := querycache.CurrentUserKey(auth.ClientIDFrom(ctx))
	load := func(c context.Context) (*auth.User, error) {
		return p.auther.CurrentUser(c, claims)
	}

	user, err := p.users.Fetch(ctx.Context(), key, load)
	if err != nil {
		return nil, err
	}

	if user.ID.String() != claims.UserID() {
		p.users.Invalidate(key)
		return p.users.Fetch(ctx.Context(), key, load)
	}

	return user, nil
}
