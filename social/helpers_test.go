package social

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-starter/auth"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type stubUsers struct {
	mu      sync.Mutex
	byID    map[string]*auth.User
	failGet error
}

func newStubUsers(users ...*auth.User) *stubUsers {
	s := &stubUsers{byID: map[string]*auth.User{}}
	for _, u := range users {
		s.byID[u.ID.String()] = u
	}
	return s
}

func (s *stubUsers) GetByID(_ context.Context, id string, _ ...repository.SelectCriteria) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	for _, u := range s.byID {
		if u.Email == auth.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) Register(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = uuid.New()
	user.Email = auth.NormalizeEmail(user.Email)
	s.byID[user.ID.String()] = user
	return user, nil
}

func (s *stubUsers) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*SocialAccount
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: map[string]*SocialAccount{}}
}

func (m *memoryAccounts) FindByProviderID(_ context.Context, provider, providerUserID string) (*SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[provider+":"+providerUserID]; ok {
		return acc, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (m *memoryAccounts) FindByUserID(_ context.Context, userID string) ([]*SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*SocialAccount
	for _, acc := range m.accounts {
		if acc.UserID == userID {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *memoryAccounts) Upsert(_ context.Context, account *SocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	m.accounts[account.Provider+":"+account.ProviderUserID] = account
	return nil
}

type fakeProvider struct {
	name        string
	profile     *SocialProfile
	exchangeErr error
	gotCode     string
	gotVerifier string
	userInfoErr error
	expiry      time.Time
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state, verifier string) string {
	return "https://provider.test/authorize?state=" + state + "&challenge=" + oauth2.S256ChallengeFromVerifier(verifier)
}

func (p *fakeProvider) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	p.gotCode, p.gotVerifier = code, verifier
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, Expiry: p.expiry}, nil
}

func (p *fakeProvider) UserInfo(_ context.Context, _ *oauth2.Token) (*SocialProfile, error) {
	if p.userInfoErr != nil {
		return nil, p.userInfoErr
	}
	profile := *p.profile
	return &profile, nil
}

type stubIssuer struct {
	issued []*auth.User
}

func (s *stubIssuer) IssueToken(_ context.Context, user *auth.User) (string, error) {
	s.issued = append(s.issued, user)
	return "session-" + user.ID.String(), nil
}
