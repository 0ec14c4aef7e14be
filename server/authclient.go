package server

import (
	"context"

	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/authflow"
	"github.com/goliatone/go-starter/social"
	"github.com/goliatone/go-starter/validation"
)

// authClient is the authflow.Client backed by the in process services.
// Email flows return a session token, social flows a provider redirect.
type authClient struct {
	auther *auth.Auther
	social *social.SocialAuthenticator
}

var _ authflow.Client = (*authClient)(nil)

func (c *authClient) SignInEmail(ctx context.Context, creds validation.Credentials, callbackURL string) (*authflow.Session, error) {
	token, user, err := c.auther.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return &authflow.Session{Token: token, UserID: user.ID.String()}, nil
}

func (c *authClient) SignUpEmail(ctx context.Context, reg validation.Registration, callbackURL string) (*authflow.Session, error) {
	token, user, err := c.auther.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return &authflow.Session{Token: token, UserID: user.ID.String()}, nil
}

// SignInSocial starts the provider round trip. The callback lands on the
// social controller, which completes the sign in and redirects to
// callbackURL.
func (c *authClient) SignInSocial(ctx context.Context, provider authflow.Provider, callbackURL string) (*authflow.Session, error) {
	if c.social == nil {
		return nil, social.ErrProviderNotFound
	}

	redirect, err := c.social.BeginAuth(ctx, string(provider), auth.ClientIDFromContext(ctx), callbackURL)
	if err != nil {
		return nil, err
	}
	return &authflow.Session{RedirectURL: redirect.URL}, nil
}
