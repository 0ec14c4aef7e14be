package auth

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/goliatone/go-starter/authflow"
	"github.com/goliatone/go-starter/validation"
)

// BusyMessage is shown when a second submission arrives while one is in flight.
const BusyMessage = "A submission is already in progress"

// FormKindField tells the social route which page the button was on.
const FormKindField = "form"

type AuthControllerRoutes struct {
	Login    string
	Logout   string
	Register string
	Social   string
}

type AuthControllerViews struct {
	Login    string
	Register string
}

type AuthController struct {
	Logger    Logger
	Registry  *authflow.Registry
	Auth      *RouteAuthenticator
	Routes    *AuthControllerRoutes
	Views     *AuthControllerViews
	Providers []string
	Home      string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithSocialProviders lists the providers rendered as buttons.
func WithSocialProviders(providers ...string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Providers = append([]string(nil), providers...)
		return c
	}
}

func NewAuthController(registry *authflow.Registry, ra *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Registry: registry,
		Auth:     ra,
		Home:     "/",
		Routes: &AuthControllerRoutes{
			Login:    "/login",
			Logout:   "/logout",
			Register: "/register",
			Social:   "/login/social/:provider",
		},
		Views: &AuthControllerViews{
			Login:    "login",
			Register: "register",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registry == nil {
		panic("Missing form registry in auth controller...")
	}

	if c.Auth == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the sign in, sign up and sign out routes.
// limiter guards the credential POSTs and may be nil.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController, limiter ...router.MiddlewareFunc) {
	session := controller.Auth.OptionalSession()

	app.Get(controller.Routes.Login, controller.LoginShow, session).
		SetName("sign-in.get")

	app.Post(controller.Routes.Login, controller.LoginPost, limiter...).
		SetName("sign-in.post")

	app.Get(controller.Routes.Register, controller.RegistrationShow, session).
		SetName("register.get")

	app.Post(controller.Routes.Register, controller.RegistrationCreate, limiter...).
		SetName("register.post")

	app.Post(controller.Routes.Social, controller.SocialPost, limiter...).
		SetName("sign-in-social.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	target := a.target(ctx)
	if _, ok := ClaimsFrom(ctx); ok {
		return ctx.Redirect(target, http.StatusFound)
	}
	// social callbacks report failures through ?error=
	return ctx.Render(a.Views.Login, a.viewContext(authflow.Snapshot{}, target, ctx.Query("error")))
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	clientID := ClientIDFrom(ctx)
	target := a.target(ctx)
	in := validation.Input{
		validation.FieldEmail:    ctx.FormValue(validation.FieldEmail),
		validation.FieldPassword: ctx.FormValue(validation.FieldPassword),
	}

	form := a.Registry.Get(clientID, authflow.KindLogin)
	outcome, err := form.SubmitLogin(ContextWithClientID(ctx.Context(), clientID), in, target, a.navigator(ctx, clientID))
	return a.respond(ctx, a.Views.Login, form, outcome, err, target)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	target := a.target(ctx)
	if _, ok := ClaimsFrom(ctx); ok {
		return ctx.Redirect(target, http.StatusFound)
	}
	return ctx.Render(a.Views.Register, a.viewContext(authflow.Snapshot{}, target, ""))
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	clientID := ClientIDFrom(ctx)
	target := a.target(ctx)
	in := validation.Input{
		validation.FieldName:            ctx.FormValue(validation.FieldName),
		validation.FieldEmail:           ctx.FormValue(validation.FieldEmail),
		validation.FieldPassword:        ctx.FormValue(validation.FieldPassword),
		validation.FieldConfirmPassword: ctx.FormValue(validation.FieldConfirmPassword),
	}

	form := a.Registry.Get(clientID, authflow.KindRegister)
	outcome, err := form.SubmitRegister(ContextWithClientID(ctx.Context(), clientID), in, target, a.navigator(ctx, clientID))
	return a.respond(ctx, a.Views.Register, form, outcome, err, target)
}

// SocialPost starts a provider sign in from the login or register page.
func (a *AuthController) SocialPost(ctx router.Context) error {
	clientID := ClientIDFrom(ctx)
	target := a.target(ctx)

	kind := authflow.ParseKind(ctx.FormValue(FormKindField))
	view := a.Views.Login
	if kind == authflow.KindRegister {
		view = a.Views.Register
	}

	form := a.Registry.Get(clientID, kind)

	provider, err := authflow.ParseProvider(ctx.Param("provider"))
	if err != nil {
		a.Logger.Info("social sign in rejected", "provider", ctx.Param("provider"))
		return ctx.Status(http.StatusBadRequest).Render(view, a.viewContext(form.Snapshot(), target, authflow.MessageFrom(err)))
	}

	outcome, err := form.SubmitSocial(ContextWithClientID(ctx.Context(), clientID), provider, target, a.navigator(ctx, clientID))
	return a.respond(ctx, view, form, outcome, err, target)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auth.Logout(ctx)
	a.Registry.Reset(ClientIDFrom(ctx))
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have been signed out",
	}).Redirect(a.Home, http.StatusSeeOther)
}

// navigator stores the session and sends the browser on. Credential flows
// go to target, social flows to the provider.
func (a *AuthController) navigator(ctx router.Context, clientID string) authflow.Navigator {
	return authflow.NavigatorFunc(func(target string, session *authflow.Session) error {
		destination := target
		if session != nil {
			if session.Token != "" {
				a.Auth.SetSession(ctx, session.Token)
			}
			if session.RedirectURL != "" {
				destination = session.RedirectURL
			}
		}
		a.Registry.Release(clientID)
		return ctx.Redirect(destination, http.StatusSeeOther)
	})
}

func (a *AuthController) respond(ctx router.Context, view string, form *authflow.Form, outcome authflow.Outcome, err error, target string) error {
	switch outcome {
	case authflow.OutcomeNavigated:
		if err != nil {
			a.Logger.Error("navigation after sign in failed", "error", err)
		}
		return err
	case authflow.OutcomeBusy:
		return ctx.Status(http.StatusConflict).Render(view, a.viewContext(form.Snapshot(), target, BusyMessage))
	default:
		snapshot := form.Snapshot()
		return ctx.Status(http.StatusUnprocessableEntity).Render(view, a.viewContext(snapshot, target, snapshot.Message))
	}
}

func (a *AuthController) viewContext(snapshot authflow.Snapshot, target, message string) router.ViewContext {
	fieldErrors := snapshot.FieldErrors
	if fieldErrors == nil {
		fieldErrors = validation.FieldErrors{}
	}
	values := snapshot.Values
	if values == nil {
		values = validation.Input{}
	}
	return router.ViewContext{
		"errors":       fieldErrors,
		"message":      message,
		"record":       values,
		"submitting":   snapshot.Submitting(),
		"redirect_url": target,
		"providers":    a.Providers,
	}
}

func (a *AuthController) target(ctx router.Context) string {
	raw := ctx.FormValue(authflow.RedirectQueryParam)
	if raw == "" {
		raw = ctx.Query(authflow.RedirectQueryParam)
	}
	return authflow.ResolveRedirect(raw, authflow.DefaultRedirect)
}
