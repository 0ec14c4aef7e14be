package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
)

// SocialProvider is an OAuth2 sign in provider.
type SocialProvider interface {
	// Name returns the provider identifier, e.g. "github".
	Name() string

	// AuthCodeURL returns the consent page URL carrying state and the
	// S256 challenge for verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// UserInfo fetches the normalized profile.
	UserInfo(ctx context.Context, token *oauth2.Token) (*SocialProfile, error)
}

// SocialProfile represents normalized user information from a social provider.
type SocialProfile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	Username       string
	AvatarURL      string
	Raw            map[string]any
}

// DisplayName falls back to the username, then the email local part.
func (p *SocialProfile) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Username != "":
		return p.Username
	}
	for i, r := range p.Email {
		if r == '@' {
			return p.Email[:i]
		}
	}
	return p.Email
}

// OAuth2Provider implements the token half of SocialProvider on
// golang.org/x/oauth2. Concrete providers embed it and add UserInfo.
type OAuth2Provider struct {
	ProviderName string
	Config       *oauth2.Config
	Options      []oauth2.AuthCodeOption

	// HTTPClient is used for the token exchange and API calls when set.
	HTTPClient *http.Client
}

// Name implements SocialProvider.
func (p *OAuth2Provider) Name() string {
	return p.ProviderName
}

// AuthCodeURL implements SocialProvider.
func (p *OAuth2Provider) AuthCodeURL(state, verifier string) string {
	opts := append([]oauth2.AuthCodeOption{}, p.Options...)
	if verifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}
	return p.Config.AuthCodeURL(state, opts...)
}

// Exchange implements SocialProvider.
func (p *OAuth2Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	token, err := p.Config.Exchange(p.Context(ctx), code, opts...)
	if err != nil {
		perr := &ProviderError{Provider: p.ProviderName, Operation: "exchange", Err: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			perr.Code = rerr.ErrorCode
			perr.Description = rerr.ErrorDescription
			if rerr.Response != nil {
				perr.Status = rerr.Response.StatusCode
			}
		}
		return nil, perr
	}
	return token, nil
}

// Context carries HTTPClient into the oauth2 calls.
func (p *OAuth2Provider) Context(ctx context.Context) context.Context {
	if p.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
}

// GetJSON performs an authenticated GET against a provider API and decodes
// the JSON body into out. Non 2xx responses become a *ProviderError.
func (p *OAuth2Provider) GetJSON(ctx context.Context, token *oauth2.Token, operation, endpoint string, out any) error {
	ctx = p.Context(ctx)
	client := p.Config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &ProviderError{Provider: p.ProviderName, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &ProviderError{Provider: p.ProviderName, Operation: operation, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, description := apiError(body)
		return &ProviderError{
			Provider:    p.ProviderName,
			Operation:   operation,
			Status:      resp.StatusCode,
			Code:        code,
			Description: description,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{
			Provider:    p.ProviderName,
			Operation:   operation,
			Status:      resp.StatusCode,
			Code:        "invalid_response",
			Description: "failed to decode response",
			Err:         err,
		}
	}
	return nil
}

const maxResponseSize = 1 << 20

// apiError reads the error shapes GitHub ({"message"}), OAuth2
// ({"error","error_description"}) and Google ({"error":{"status","message"}})
// return.
func apiError(body []byte) (code, description string) {
	var payload struct {
		Message          string `json:"message"`
		Error            any    `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch e := payload.Error.(type) {
		case string:
			code = e
		case map[string]any:
			code, _ = e["status"].(string)
			description, _ = e["message"].(string)
		}
		switch {
		case payload.Message != "":
			description = payload.Message
		case payload.ErrorDescription != "":
			description = payload.ErrorDescription
		}
		if code != "" || description != "" {
			return code, description
		}
	}

	description = strings.TrimSpace(string(body))
	if description == "" {
		description = "request failed"
	}
	return "", description
}

// TokenExpiry returns the token expiry, or nil for tokens that do not
// expire.
func TokenExpiry(token *oauth2.Token) *time.Time {
	if token == nil || token.Expiry.IsZero() {
		return nil
	}
	expiry := token.Expiry.UTC()
	return &expiry
}
