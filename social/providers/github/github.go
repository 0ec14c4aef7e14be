package github

import (
	"context"
	"net/http"

	"github.com/goliatone/go-starter/social"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderName = "github"

	defaultUserURL   = "https://api.github.com/user"
	defaultEmailsURL = "https://api.github.com/user/emails"
)

// Config holds GitHub OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	// Endpoint overrides, used by tests
	AuthURL   string
	TokenURL  string
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default GitHub scopes.
func DefaultScopes() []string {
	return []string{"user:email", "read:user"}
}

// Provider implements social.SocialProvider for GitHub.
type Provider struct {
	*social.OAuth2Provider
	userURL   string
	emailsURL string
}

// New creates a new GitHub provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	if cfg.EmailsURL == "" {
		cfg.EmailsURL = defaultEmailsURL
	}

	endpoint := endpoints.GitHub
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	return &Provider{
		OAuth2Provider: &social.OAuth2Provider{
			ProviderName: ProviderName,
			Config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.CallbackURL,
				Scopes:       cfg.Scopes,
				Endpoint:     endpoint,
			},
			HTTPClient: cfg.HTTPClient,
		},
		userURL:   cfg.UserURL,
		emailsURL: cfg.EmailsURL,
	}
}

// UserInfo implements social.SocialProvider. The profile email comes from
// the emails API since /user only carries the public address.
func (p *Provider) UserInfo(ctx context.Context, token *oauth2.Token) (*social.SocialProfile, error) {
	var user account
	if err := p.GetJSON(ctx, token, "user_info", p.userURL, &user); err != nil {
		return nil, err
	}

	var emails []address
	if err := p.GetJSON(ctx, token, "emails", p.emailsURL, &emails); err != nil {
		return user.toProfile(user.Email, false), nil
	}

	email, verified := primaryEmail(emails)
	if email == "" {
		email = user.Email
	}
	return user.toProfile(email, verified), nil
}

func primaryEmail(emails []address) (string, bool) {
	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true
		}
	}
	return "", false
}
