package github

import (
	"strconv"

	"github.com/goliatone/go-starter/social"
)

// account is the subset of GET /user we keep.
type account struct {
	ID      int64  `json:"id"`
	Login   string `json:"login"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar_url"`
	Profile string `json:"html_url"`
}

// address is one entry of GET /user/emails.
type address struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (a account) toProfile(email string, verified bool) *social.SocialProfile {
	id := strconv.FormatInt(a.ID, 10)
	return &social.SocialProfile{
		Provider:       ProviderName,
		ProviderUserID: id,
		Username:       a.Login,
		Name:           a.Name,
		Email:          email,
		EmailVerified:  verified,
		AvatarURL:      a.Avatar,
		Raw: map[string]any{
			"id":       id,
			"login":    a.Login,
			"html_url": a.Profile,
		},
	}
}
