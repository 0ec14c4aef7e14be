package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-starter/social"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SocialAccountModel is the Bun model for social accounts.
type SocialAccountModel struct {
	bun.BaseModel `bun:"table:social_accounts,alias:sa"`

	ID             uuid.UUID      `bun:"id,pk,type:uuid"`
	UserID         uuid.UUID      `bun:"user_id,notnull,type:uuid"`
	Provider       string         `bun:"provider,notnull,unique:provider_identity"`
	ProviderUserID string         `bun:"provider_user_id,notnull,unique:provider_identity"`
	Email          string         `bun:"email"`
	Name           string         `bun:"name"`
	Username       string         `bun:"username"`
	AvatarURL      string         `bun:"avatar_url"`
	AccessToken    string         `bun:"access_token"`
	RefreshToken   string         `bun:"refresh_token"`
	TokenExpiresAt *time.Time     `bun:"token_expires_at"`
	ProfileData    map[string]any `bun:"profile_data"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SocialAccountRepository implements social.SocialAccountRepository using Bun.
type SocialAccountRepository struct {
	db  *bun.DB
	now func() time.Time
}

var _ social.SocialAccountRepository = (*SocialAccountRepository)(nil)

func NewSocialAccountRepository(db *bun.DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: db, now: time.Now}
}

// FindByProviderID implements social.SocialAccountRepository.
func (r *SocialAccountRepository) FindByProviderID(ctx context.Context, provider, providerUserID string) (*social.SocialAccount, error) {
	model := new(SocialAccountModel)
	err := r.db.NewSelect().
		Model(model).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"provider":         provider,
				"provider_user_id": providerUserID,
			})
		}
		return nil, err
	}
	return toSocialAccount(model), nil
}

// FindByUserID implements social.SocialAccountRepository.
func (r *SocialAccountRepository) FindByUserID(ctx context.Context, userID string) ([]*social.SocialAccount, error) {
	var models []SocialAccountModel
	err := r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.provider ASC").
		Scan(ctx)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	accounts := make([]*social.SocialAccount, len(models))
	for i := range models {
		accounts[i] = toSocialAccount(&models[i])
	}
	return accounts, nil
}

// Upsert implements social.SocialAccountRepository. A second sign in with
// the same provider identity refreshes the stored profile and tokens.
func (r *SocialAccountRepository) Upsert(ctx context.Context, account *social.SocialAccount) error {
	if account == nil {
		return errors.New("social account is required", errors.CategoryBadInput)
	}

	model, err := fromSocialAccount(account)
	if err != nil {
		return err
	}
	model.UpdatedAt = r.now()

	_, err = r.db.NewInsert().
		Model(model).
		On("CONFLICT (provider, provider_user_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("username = EXCLUDED.username").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("profile_data = EXCLUDED.profile_data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to upsert social account")
	}

	stored, err := r.FindByProviderID(ctx, account.Provider, account.ProviderUserID)
	if err != nil {
		return err
	}
	account.ID = stored.ID
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func toSocialAccount(m *SocialAccountModel) *social.SocialAccount {
	return &social.SocialAccount{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		Provider:       m.Provider,
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		Name:           m.Name,
		Username:       m.Username,
		AvatarURL:      m.AvatarURL,
		AccessToken:    m.AccessToken,
		RefreshToken:   m.RefreshToken,
		TokenExpiresAt: m.TokenExpiresAt,
		ProfileData:    m.ProfileData,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func fromSocialAccount(a *social.SocialAccount) (*SocialAccountModel, error) {
	userID, err := uuid.Parse(a.UserID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "social account user id must be a uuid")
	}

	id := uuid.New()
	if parsed, err := uuid.Parse(a.ID); err == nil {
		id = parsed
	}

	profileData := a.ProfileData
	if profileData == nil {
		profileData = map[string]any{}
	}

	return &SocialAccountModel{
		ID:             id,
		UserID:         userID,
		Provider:       a.Provider,
		ProviderUserID: a.ProviderUserID,
		Email:          a.Email,
		Name:           a.Name,
		Username:       a.Username,
		AvatarURL:      a.AvatarURL,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: a.TokenExpiresAt,
		ProfileData:    profileData,
		CreatedAt:      a.CreatedAt,
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
