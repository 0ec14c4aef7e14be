package google

import (
	"context"
	"net/http"

	"github.com/goliatone/go-starter/social"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderName = "google"

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// Config holds Google OAuth configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	HTTPClient *http.Client
}

// DefaultScopes returns the default Google scopes.
func DefaultScopes() []string {
	return []string{"openid", "email", "profile"}
}

// Provider implements social.SocialProvider for Google.
type Provider struct {
	*social.OAuth2Provider
	userInfoURL string
}

// New creates a new Google provider.
func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes()
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}

	endpoint := endpoints.Google
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
			Options:    []oauth2.AuthCodeOption{oauth2.AccessTypeOnline},
			HTTPClient: cfg.HTTPClient,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// UserInfo implements social.SocialProvider.
func (p *Provider) UserInfo(ctx context.Context, token *oauth2.Token) (*social.SocialProfile, error) {
	var info claims
	if err := p.GetJSON(ctx, token, "user_info", p.userInfoURL, &info); err != nil {
		return nil, err
	}
	return info.toProfile(), nil
}
