package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/database"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	repo   auth.RepositoryManager
	tokens *auth.TokenService
	auther *auth.Auther
}

func newTestEnv(t *testing.T, opts ...auth.AutherOption) *testEnv {
	t.Helper()

	client, err := database.New("sqlite::memory:", database.WithMaxConns(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Migrate(context.Background(), auth.Models()...))

	repo := auth.NewRepositoryManager(client.MustDB())
	require.NoError(t, repo.Validate())

	tokens := auth.NewTokenService([]byte(testSigningKey), time.Hour, "test-issuer")

	opts = append([]auth.AutherOption{auth.WithHashCost(bcrypt.MinCost)}, opts...)

	return &testEnv{
		repo:   repo,
		tokens: tokens,
		auther: auth.NewAuthenticator(repo, tokens, opts...),
	}
}

// MockUserTracker implements auth.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*auth.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}
