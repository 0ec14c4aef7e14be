package auth_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/authflow"
	"github.com/goliatone/go-starter/querycache"
	"github.com/goliatone/go-starter/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	session *authflow.Session
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeClient) wait() (*authflow.Session, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return f.session, f.err
}

func (f *fakeClient) SignInEmail(context.Context, validation.Credentials, string) (*authflow.Session, error) {
	return f.wait()
}

func (f *fakeClient) SignUpEmail(context.Context, validation.Registration, string) (*authflow.Session, error) {
	return f.wait()
}

func (f *fakeClient) SignInSocial(context.Context, authflow.Provider, string) (*authflow.Session, error) {
	return f.wait()
}

func newTestController(client authflow.Client) (*auth.AuthController, *authflow.Registry, *querycache.Cache[*auth.User]) {
	cache := querycache.New[*auth.User](time.Minute)
	registry := authflow.NewRegistry(client, cache)
	ra := auth.NewHTTPAuthenticator(nil, auth.HTTPConfig{
		CookieName: "session",
		Expiration: time.Hour,
	})
	return auth.NewAuthController(registry, ra, auth.WithSocialProviders("github")), registry, cache
}

func newRequest(clientID string) *router.MockContext {
	ctx := router.NewMockContext()
	ctx.LocalsMock[auth.ClientIDLocalsKey] = clientID
	ctx.On("Context").Return(context.Background()).Maybe()
	return ctx
}

func viewArg(t *testing.T, args mock.Arguments) router.ViewContext {
	t.Helper()
	view, ok := args.Get(1).(router.ViewContext)
	require.True(t, ok, "expected router.ViewContext")
	return view
}

func TestLoginShowRendersTarget(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeClient{})

	ctx := newRequest("c1")
	ctx.QueriesM[authflow.RedirectQueryParam] = "/settings"
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := viewArg(t, args)
		assert.Equal(t, "/settings", view["redirect_url"])
		assert.Equal(t, []string{"github"}, view["providers"])
		assert.Equal(t, validation.FieldErrors{}, view["errors"])
	})

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginShowSurfacesSocialError(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeClient{})

	ctx := newRequest("c1")
	ctx.QueriesM["error"] = "Sign in was cancelled"
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		assert.Equal(t, "Sign in was cancelled", viewArg(t, args)["message"])
	})

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginShowRedirectsSignedInUsers(t *testing.T) {
	ctrl, _, _ := newTestController(&fakeClient{})

	ctx := newRequest("c1")
	ctx.LocalsMock[auth.ClaimsContextKey] = &auth.JWTClaims{UID: "u1"}
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("Redirect", authflow.DefaultRedirect, []int{http.StatusFound}).Return(nil)

	require.NoError(t, ctrl.LoginShow(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostInvalidInputSkipsClient(t *testing.T) {
	client := &fakeClient{}
	ctrl, _, _ := newTestController(client)

	ctx := newRequest("c1")
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("FormValue", validation.FieldEmail).Return("not-an-email")
	ctx.On("FormValue", validation.FieldPassword).Return("")
	ctx.On("Status", http.StatusUnprocessableEntity).Return(ctx)
	ctx.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := viewArg(t, args)
		errs := view["errors"].(validation.FieldErrors)
		assert.Equal(t, "Invalid email address", errs[validation.FieldEmail])
		assert.Equal(t, "Password is required", errs[validation.FieldPassword])
		record := view["record"].(validation.Input)
		assert.Equal(t, "not-an-email", record[validation.FieldEmail])
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	assert.Equal(t, int32(0), client.calls.Load())
	ctx.AssertExpectations(t)
}

func TestLoginPostSuccessSetsSessionAndRedirects(t *testing.T) {
	client := &fakeClient{session: &authflow.Session{Token: "jwt-token", UserID: "u1"}}
	ctrl, registry, cache := newTestController(client)
	cache.Set(querycache.CurrentUserKey("c1"), &auth.User{Name: "stale"})

	ctx := newRequest("c1")
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("/settings")
	ctx.On("FormValue", validation.FieldEmail).Return("ada@example.com")
	ctx.On("FormValue", validation.FieldPassword).Return("secret123")
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "session" && c.Value == "jwt-token" && c.HTTPOnly && c.Path == "/"
	})).Return()
	ctx.On("Redirect", "/settings", []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.LoginPost(ctx))

	assert.Equal(t, int32(1), client.calls.Load())
	_, cached := cache.Get(querycache.CurrentUserKey("c1"))
	assert.False(t, cached)
	assert.Equal(t, 0, registry.Len())
	ctx.AssertExpectations(t)
}

func TestLoginPostRejectedShowsServiceMessage(t *testing.T) {
	client := &fakeClient{err: auth.ErrInvalidCredentials}
	ctrl, _, _ := newTestController(client)

	ctx := newRequest("c1")
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("https://evil.example.com")
	ctx.On("FormValue", validation.FieldEmail).Return("ada@example.com")
	ctx.On("FormValue", validation.FieldPassword).Return("secret123")
	ctx.On("Status", http.StatusUnprocessableEntity).Return(ctx)
	ctx.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := viewArg(t, args)
		assert.Equal(t, "Invalid credentials", view["message"])
		assert.Equal(t, authflow.DefaultRedirect, view["redirect_url"])
		record := view["record"].(validation.Input)
		assert.Equal(t, "ada@example.com", record[validation.FieldEmail])
		assert.NotContains(t, record, validation.FieldPassword)
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	ctx.AssertExpectations(t)
}

func TestLoginPostWhileSubmittingIsBusy(t *testing.T) {
	client := &fakeClient{
		session: &authflow.Session{Token: "jwt-token"},
		release: make(chan struct{}),
	}
	ctrl, registry, _ := newTestController(client)

	first := newRequest("c1")
	first.On("FormValue", authflow.RedirectQueryParam).Return("")
	first.On("FormValue", validation.FieldEmail).Return("ada@example.com")
	first.On("FormValue", validation.FieldPassword).Return("secret123")
	first.On("Cookie", mock.Anything).Return()
	first.On("Redirect", authflow.DefaultRedirect, []int{http.StatusSeeOther}).Return(nil)

	done := make(chan error, 1)
	go func() { done <- ctrl.LoginPost(first) }()

	require.Eventually(t, func() bool {
		return registry.Get("c1", authflow.KindLogin).State() == authflow.Submitting
	}, time.Second, time.Millisecond)

	second := newRequest("c1")
	second.On("FormValue", authflow.RedirectQueryParam).Return("")
	second.On("FormValue", validation.FieldEmail).Return("ada@example.com")
	second.On("FormValue", validation.FieldPassword).Return("secret123")
	second.On("Status", http.StatusConflict).Return(second)
	second.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := viewArg(t, args)
		assert.Equal(t, auth.BusyMessage, view["message"])
		assert.Equal(t, true, view["submitting"])
	})

	require.NoError(t, ctrl.LoginPost(second))

	close(client.release)
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), client.calls.Load())
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestSocialPostRedirectsToProvider(t *testing.T) {
	authURL := "https://github.com/login/oauth/authorize?state=abc"
	client := &fakeClient{session: &authflow.Session{RedirectURL: authURL}}
	ctrl, _, _ := newTestController(client)

	ctx := newRequest("c1")
	ctx.ParamsM["provider"] = "github"
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("FormValue", auth.FormKindField).Return("register")
	ctx.On("Redirect", authURL, []int{http.StatusSeeOther}).Return(nil)

	require.NoError(t, ctrl.SocialPost(ctx))
	assert.Equal(t, int32(1), client.calls.Load())
	ctx.AssertNotCalled(t, "Cookie", mock.Anything)
	ctx.AssertExpectations(t)
}

func TestSocialPostUnknownProvider(t *testing.T) {
	client := &fakeClient{}
	ctrl, _, _ := newTestController(client)

	ctx := newRequest("c1")
	ctx.ParamsM["provider"] = "myspace"
	ctx.On("FormValue", authflow.RedirectQueryParam).Return("")
	ctx.On("FormValue", auth.FormKindField).Return("")
	ctx.On("Status", http.StatusBadRequest).Return(ctx)
	ctx.On("Render", "login", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		view := viewArg(t, args)
		assert.Equal(t, authflow.ErrUnknownProvider.Message, view["message"])
	})

	require.NoError(t, ctrl.SocialPost(ctx))
	assert.Equal(t, int32(0), client.calls.Load())
	ctx.AssertExpectations(t)
}

func TestNewAuthControllerRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewAuthController(nil, &auth.RouteAuthenticator{})
	})
}
