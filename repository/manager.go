// Package repository wires the bun repositories the application uses.
package repository

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/social"
	"github.com/uptrace/bun"
)

// Manager extends the auth repositories with the social account store.
type Manager struct {
	auth.RepositoryManager
	socialAccounts *SocialAccountRepository
}

func NewManager(db *bun.DB) *Manager {
	return &Manager{
		RepositoryManager: auth.NewRepositoryManager(db),
		socialAccounts:    NewSocialAccountRepository(db),
	}
}

func (m *Manager) Validate() error {
	if err := m.RepositoryManager.Validate(); err != nil {
		return err
	}

	if m.socialAccounts == nil || m.socialAccounts.db == nil {
		return errors.New("repository social accounts should be initialized", errors.CategoryInternal)
	}

	return nil
}

func (m *Manager) SocialAccounts() social.SocialAccountRepository {
	return m.socialAccounts
}

// Models lists every table the application owns, in creation order.
func Models() []any {
	return append(auth.Models(), (*SocialAccountModel)(nil))
}
