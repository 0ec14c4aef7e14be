package authflow

import (
	"net/url"
	"strings"
)

// RedirectQueryParam carries the post sign in destination.
const RedirectQueryParam = "redirectUrl"

// DefaultRedirect is used when no usable target is given.
const DefaultRedirect = "/dashboard"

// ResolveRedirect returns raw when it is a path on this site, fallback
// otherwise. An empty fallback means DefaultRedirect.
func ResolveRedirect(raw, fallback string) string {
	if fallback == "" {
		fallback = DefaultRedirect
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return fallback
	}

	if strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}

	return raw
}
