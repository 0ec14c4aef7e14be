package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/middleware/clientip"
)

var (
	ErrTokenMismatch = errors.New("CSRF token mismatch", errors.CategoryAuthz).
				WithCode(errors.CodeForbidden).
				WithTextCode("CSRF_MISMATCH")
	ErrTokenMissing = errors.New("CSRF token missing", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode("CSRF_MISSING")
	ErrTokenExpired = errors.New("CSRF token expired", errors.CategoryAuthz).
			WithCode(errors.CodeForbidden).
			WithTextCode("CSRF_EXPIRED")
)

// DefaultTokenLength is the nonce size in bytes
const DefaultTokenLength = 16

// DefaultTemplateHelpersKey is the locals key helpers are merged under
const DefaultTemplateHelpersKey = "template_helpers"

// DefaultContextKey is the locals key holding the token
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the form field checked on unsafe requests
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the header checked on unsafe requests
const DefaultHeaderName = "X-CSRF-Token"

// DefaultBindingKey is the locals key whose value the token is bound to
const DefaultBindingKey = "client_id"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// TokenLength is the number of random bytes in each token
	TokenLength int

	ContextKey    string
	FormFieldName string
	HeaderName    string

	// BindingKey names the locals value tokens are bound to. Requests
	// without it fall back to the client IP.
	BindingKey string

	ErrorHandler   router.ErrorHandler
	SuccessHandler router.HandlerFunc

	// SafeMethods are not validated
	SafeMethods []string

	// Expiration is how long an issued token stays valid
	Expiration time.Duration

	// SecureKey signs tokens, at least 32 bytes
	SecureKey []byte

	DisableTemplateHelpers bool
	TemplateHelpersKey     string
}

// New creates a new CSRF middleware. Each request gets a fresh signed
// token; unsafe methods must echo back one signed for the same binding.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := issueToken(ctx, cfg, time.Now())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			if !cfg.DisableTemplateHelpers {
				ctx.LocalsMerge(cfg.TemplateHelpersKey, TemplateHelpers(token, cfg.FormFieldName, cfg.HeaderName))
			}

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return cfg.SuccessHandler(ctx)
			}

			if err := validateToken(ctx, cfg, time.Now()); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// token layout before encoding: unix:nonceHex:binding:sigHex
func issueToken(ctx router.Context, cfg Config, now time.Time) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate CSRF nonce")
	}

	payload := fmt.Sprintf("%d:%s:%s", now.UTC().Unix(), hex.EncodeToString(nonce), bindingFor(ctx, cfg))
	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(ctx router.Context, cfg Config, now time.Time) error {
	received := ctx.FormValue(cfg.FormFieldName)
	if received == "" {
		received = ctx.Header(cfg.HeaderName)
	}
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	issuedAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(bindingFor(ctx, cfg))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 && now.UTC().After(time.Unix(issuedAt, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func bindingFor(ctx router.Context, cfg Config) string {
	if raw := ctx.Locals(cfg.BindingKey); raw != nil {
		if id, ok := raw.(string); ok && id != "" {
			return "c." + id
		}
	}
	return "ip." + clientip.From(ctx)
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.BindingKey == "" {
		cfg.BindingKey = DefaultBindingKey
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 12 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.TemplateHelpersKey == "" {
		cfg.TemplateHelpersKey = DefaultTemplateHelpersKey
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code != 0 {
		return ctx.Status(richErr.Code).SendString(richErr.Message)
	}
	return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}

// TemplateHelpers returns the values views use to embed the token.
func TemplateHelpers(token, fieldName, headerName string) map[string]any {
	escaped := html.EscapeString(token)
	return map[string]any{
		"csrf_token":       token,
		"csrf_field_name":  fieldName,
		"csrf_field":       `<input type="hidden" name="` + fieldName + `" value="` + escaped + `">`,
		"csrf_meta":        `<meta name="csrf-token" content="` + escaped + `">`,
		"csrf_header_name": headerName,
	}
}
