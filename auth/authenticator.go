package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-starter/validation"
	"github.com/uptrace/bun"
)

// Auther signs users in and out of the app. It owns password checks,
// account creation and session tokens.
type Auther struct {
	repo         RepositoryManager
	provider     *UserProvider
	tokens       *TokenService
	logger       Logger
	activitySink ActivitySink
	hashCost     int
	now          func() time.Time
}

type AutherOption func(*Auther)

func WithAutherLogger(logger Logger) AutherOption {
	return func(a *Auther) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithActivitySink configures where account events are sent.
func WithActivitySink(sink ActivitySink) AutherOption {
	return func(a *Auther) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) AutherOption {
	return func(a *Auther) {
		if cost > 0 {
			a.hashCost = cost
		}
	}
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, tokens *TokenService, opts ...AutherOption) *Auther {
	a := &Auther{
		repo:         repo,
		provider:     NewUserProvider(repo.Users()),
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		hashCost:     passwordHashCost(),
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	a.provider.WithLogger(a.logger)

	return a
}

func (a *Auther) TokenService() *TokenService {
	return a.tokens
}

// Login verifies creds and returns a signed session token.
func (a *Auther) Login(ctx context.Context, creds validation.Credentials) (string, *User, error) {
	user, err := a.provider.VerifyIdentity(ctx, creds.Email, creds.Password)
	if err != nil {
		a.logger.Info("login rejected", "error", err)
		a.emit(ctx, ActivityEventLoginFailure, "", map[string]any{
			"email": NormalizeEmail(creds.Email),
			"error": err.Error(),
		})
		return "", nil, err
	}

	token, err := a.tokens.Generate(user)
	if err != nil {
		return "", nil, err
	}

	a.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)

	return token, user, nil
}

// Register creates a password account and signs it in.
func (a *Auther) Register(ctx context.Context, reg validation.Registration) (string, *User, error) {
	hash, err := HashPasswordWithCost(reg.Password, a.hashCost)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:          reg.Name,
		Email:         NormalizeEmail(reg.Email),
		PasswordHash:  hash,
		Role:          RoleMember,
		EmailVerified: false,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Users().GetByEmailTx(ctx, tx, user.Email); err == nil {
			return ErrEmailTaken
		} else if !isNotFound(err) {
			return err
		}

		created, err := a.repo.Users().RegisterTx(ctx, tx, user)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to create user")
		}
		user = created
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	if err := a.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track registration login", "error", err)
	}

	token, err := a.tokens.Generate(user)
	if err != nil {
		return "", nil, err
	}

	a.emit(ctx, ActivityEventRegister, user.ID.String(), nil)

	return token, user, nil
}

// IssueToken signs a session for a user authenticated elsewhere.
func (a *Auther) IssueToken(ctx context.Context, user *User) (string, error) {
	token, err := a.tokens.Generate(user)
	if err != nil {
		return "", err
	}
	a.emit(ctx, ActivityEventSocialLogin, user.ID.String(), nil)
	return token, nil
}

// CurrentUser loads the user a session token belongs to.
func (a *Auther) CurrentUser(ctx context.Context, claims *JWTClaims) (*User, error) {
	if claims == nil || claims.UserID() == "" {
		return nil, ErrIdentityNotFound
	}

	user, err := a.repo.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if isNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return user, nil
}

// Logout records the sign out.
func (a *Auther) Logout(ctx context.Context, userID string) {
	a.emit(ctx, ActivityEventLogout, userID, nil)
}

func (a *Auther) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: a.now(),
	}
	if err := a.activitySink.Record(ctx, event); err != nil {
		a.logger.Error("failed to record activity", "event", eventType, "error", err)
	}
}
