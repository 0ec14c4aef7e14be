package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	// ClientIDCookie names the cookie identifying a browser
	ClientIDCookie = "client_id"
	// ClientIDLocalsKey matches the csrf binding key
	ClientIDLocalsKey = "client_id"
)

type clientIDKey struct{}

// ClientIDConfig configures the client id middleware.
type ClientIDConfig struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// ClientID makes sure every browser carries a random client id. The id
// keys the form registry, csrf tokens and cached queries.
func ClientID(config ...ClientIDConfig) router.MiddlewareFunc {
	cfg := ClientIDConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.CookieName == "" {
		cfg.CookieName = ClientIDCookie
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 365 * 24 * time.Hour
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			id := ctx.Cookies(cfg.CookieName)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				ctx.Cookie(&router.Cookie{
					Name:     cfg.CookieName,
					Value:    id,
					Path:     "/",
					Expires:  time.Now().Add(cfg.MaxAge),
					HTTPOnly: true,
					Secure:   cfg.Secure,
					SameSite: "Lax",
				})
			}

			ctx.Locals(ClientIDLocalsKey, id)
			return ctx.Next()
		}
	}
}

// ClientIDFrom returns the id stored by the ClientID middleware.
func ClientIDFrom(ctx router.Context) string {
	id, _ := ctx.Locals(ClientIDLocalsKey).(string)
	return id
}

// ContextWithClientID carries the client id into service calls.
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext reads the id set by ContextWithClientID.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}
