package google

import "github.com/goliatone/go-starter/social"

// claims is the OpenID Connect userinfo document.
type claims struct {
	Subject  string `json:"sub"`
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	Locale   string `json:"locale"`
	Domain   string `json:"hd"`
}

func (c claims) toProfile() *social.SocialProfile {
	raw := map[string]any{"sub": c.Subject}
	if c.Locale != "" {
		raw["locale"] = c.Locale
	}
	if c.Domain != "" {
		raw["hd"] = c.Domain
	}

	return &social.SocialProfile{
		Provider:       ProviderName,
		ProviderUserID: c.Subject,
		Name:           c.Name,
		Email:          c.Email,
		EmailVerified:  c.Verified,
		AvatarURL:      c.Picture,
		Raw:            raw,
	}
}
