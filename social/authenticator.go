package social

import (
	"context"
	"sort"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-starter/auth"
	"golang.org/x/oauth2"
)

// TokenIssuer signs a session for a resolved user.
type TokenIssuer interface {
	IssueToken(ctx context.Context, user *auth.User) (string, error)
}

// SocialAuthenticator orchestrates social login flows.
type SocialAuthenticator struct {
	providers map[string]SocialProvider
	state     StateManager
	linker    *Linker
	accounts  SocialAccountRepository
	issuer    TokenIssuer
	logger    Logger
	now       func() time.Time
}

// SocialAuthOption configures the social authenticator.
type SocialAuthOption func(*SocialAuthenticator)

// WithProvider registers a social provider.
func WithProvider(provider SocialProvider) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if provider == nil {
			return
		}
		sa.providers[provider.Name()] = provider
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) SocialAuthOption {
	return func(sa *SocialAuthenticator) {
		if logger != nil {
			sa.logger = logger
		}
	}
}

// NewSocialAuthenticator creates a new social authenticator.
func NewSocialAuthenticator(
	users UserStore,
	accounts SocialAccountRepository,
	issuer TokenIssuer,
	state StateManager,
	opts ...SocialAuthOption,
) *SocialAuthenticator {
	sa := &SocialAuthenticator{
		providers: make(map[string]SocialProvider),
		state:     state,
		linker:    &Linker{Users: users, Accounts: accounts},
		accounts:  accounts,
		issuer:    issuer,
		logger:    defLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	return sa
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a successful authentication.
type AuthResult struct {
	User        *auth.User
	Token       string
	IsNewUser   bool
	Provider    string
	Profile     *SocialProfile
	RedirectURL string
}

// Providers returns the registered provider names in order.
func (sa *SocialAuthenticator) Providers() []string {
	names := make([]string, 0, len(sa.providers))
	for name := range sa.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProvider reports whether name is registered.
func (sa *SocialAuthenticator) HasProvider(name string) bool {
	_, ok := sa.providers[name]
	return ok
}

// BeginAuth starts the OAuth flow for a provider. The state is bound to
// clientID so only the browser that started the flow can complete it.
func (sa *SocialAuthenticator) BeginAuth(ctx context.Context, providerName, clientID, redirectURL string) (*AuthRedirect, error) {
	provider, ok := sa.providers[providerName]
	if !ok {
		sa.logger.Debug("unknown social provider", "provider", providerName)
		return nil, ErrProviderNotFound
	}

	verifier := oauth2.GenerateVerifier()
	now := sa.now()
	token, err := sa.state.Encode(&OAuthState{
		Provider:     providerName,
		ClientID:     clientID,
		CodeVerifier: verifier,
		RedirectURL:  redirectURL,
		IssuedAt:     now.Unix(),
	})
	if err != nil {
		return nil, err
	}

	sa.logger.Debug("social sign in started", "provider", providerName)

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(token, verifier),
		State:    token,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after the provider callback.
func (sa *SocialAuthenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken, clientID string) (*AuthResult, error) {
	state, err := sa.state.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != providerName || state.ClientID == "" || state.ClientID != clientID {
		return nil, ErrInvalidState
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		sa.logger.Debug("unknown social provider", "provider", providerName)
		return nil, ErrProviderNotFound
	}

	token, err := provider.Exchange(ctx, code, state.CodeVerifier)
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	profile, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}
	if profile.Provider == "" {
		profile.Provider = providerName
	}

	result, err := sa.linker.ResolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	account := &SocialAccount{
		UserID:         result.User.ID.String(),
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		Username:       profile.Username,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: TokenExpiry(token),
		ProfileData:    profile.Raw,
	}
	if err := sa.accounts.Upsert(ctx, account); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to save social account")
	}

	session, err := sa.issuer.IssueToken(ctx, result.User)
	if err != nil {
		return nil, err
	}

	sa.logger.Info("social sign in completed",
		"provider", providerName,
		"user_id", result.User.ID,
		"new_user", result.IsNewUser,
		"linked", result.Linked,
	)

	return &AuthResult{
		User:        result.User,
		Token:       session,
		IsNewUser:   result.IsNewUser,
		Provider:    providerName,
		Profile:     profile,
		RedirectURL: state.RedirectURL,
	}, nil
}
