package authflow

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-starter/validation"
)

// Provider names a social sign in provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

const TextCodeUnknownProvider = "AUTHFLOW_UNKNOWN_PROVIDER"

// ErrUnknownProvider is returned for providers other than github and google.
var ErrUnknownProvider = errors.New("unknown social provider", errors.CategoryBadInput).
	WithTextCode(TextCodeUnknownProvider).
	WithCode(errors.CodeBadRequest)

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGitHub, ProviderGoogle:
		return p, nil
	}
	return "", ErrUnknownProvider
}

// Session is the opaque result of a successful sign in. Credential flows
// carry a Token, social flows carry the provider RedirectURL the browser
// must visit next.
type Session struct {
	Token       string
	UserID      string
	RedirectURL string
}

// Client talks to the authentication service. Errors should carry a
// human readable message, it is shown to the user as is.
type Client interface {
	SignInEmail(ctx context.Context, creds validation.Credentials, callbackURL string) (*Session, error)
	SignUpEmail(ctx context.Context, reg validation.Registration, callbackURL string) (*Session, error)
	SignInSocial(ctx context.Context, provider Provider, callbackURL string) (*Session, error)
}

// Cache drops cached queries so dependent views refetch.
type Cache interface {
	Invalidate(key string)
}

// Navigator moves the user to target after a successful sign in.
type Navigator interface {
	Navigate(target string, session *Session) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string, session *Session) error

func (fn NavigatorFunc) Navigate(target string, session *Session) error {
	return fn(target, session)
}

// DefaultErrorMessage is shown when a service error carries no message.
const DefaultErrorMessage = "Something went wrong. Please try again."

// MessageFrom extracts the user facing message of a service error.
func MessageFrom(err error) string {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
