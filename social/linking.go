package social

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-starter/auth"
)

// LinkingResult contains the resolved user and metadata.
type LinkingResult struct {
	User      *auth.User
	IsNewUser bool
	Linked    bool
}

// UserStore is the part of auth.Users the linker needs.
type UserStore interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error)
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	Register(ctx context.Context, user *auth.User) (*auth.User, error)
}

// Linker maps a provider profile to a local user:
//
//  1. a profile already linked signs in as the linked user
//  2. a verified email matching an account links the profile to it
//  3. otherwise a new account without password is created
type Linker struct {
	Users    UserStore
	Accounts SocialAccountRepository
}

// ResolveUser implements the linking rules.
func (l *Linker) ResolveUser(ctx context.Context, profile *SocialProfile) (*LinkingResult, error) {
	if profile == nil {
		return nil, ErrUserInfoFailed
	}

	existing, err := l.Accounts.FindByProviderID(ctx, profile.Provider, profile.ProviderUserID)
	if err == nil && existing != nil {
		user, err := l.Users.GetByID(ctx, existing.UserID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find linked user").
				WithMetadata(map[string]any{"user_id": existing.UserID})
		}
		return &LinkingResult{User: user}, nil
	}
	if err != nil && !notFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find linked account")
	}

	if profile.Email == "" {
		return nil, ErrEmailMissing
	}

	user, err := l.Users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if !profile.EmailVerified {
			return nil, ErrEmailNotVerified
		}
		return &LinkingResult{User: user, Linked: true}, nil
	case !notFound(err):
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to find user by email")
	}

	created, err := l.Users.Register(ctx, &auth.User{
		Name:          profile.DisplayName(),
		Email:         profile.Email,
		EmailVerified: profile.EmailVerified,
		Image:         profile.AvatarURL,
		Role:          auth.RoleMember,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return &LinkingResult{User: created, IsNewUser: true}, nil
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) || errors.IsNotFound(err)
}
