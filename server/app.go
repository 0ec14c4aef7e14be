// Package server is the composition root: it builds every service from
// the configuration and mounts the HTTP routes.
package server

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/goliatone/go-starter/auth"
	"github.com/goliatone/go-starter/authflow"
	"github.com/goliatone/go-starter/config"
	"github.com/goliatone/go-starter/database"
	"github.com/goliatone/go-starter/middleware/clientip"
	"github.com/goliatone/go-starter/middleware/csrf"
	"github.com/goliatone/go-starter/middleware/throttle"
	"github.com/goliatone/go-starter/querycache"
	"github.com/goliatone/go-starter/repository"
	"github.com/goliatone/go-starter/social"
	"github.com/goliatone/go-starter/social/providers/github"
	"github.com/goliatone/go-starter/social/providers/google"
	"github.com/goliatone/go-starter/theme"
	"github.com/goliatone/go-starter/views"
)

const (
	// CurrentUserTTL bounds how stale the cached current user can get.
	CurrentUserTTL  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type App struct {
	cfg    *config.Config
	logger *glog.BaseLogger

	db       *database.Client
	repo     *repository.Manager
	auther   *auth.Auther
	httpAuth *auth.RouteAuthenticator
	social   *social.SocialAuthenticator
	registry *authflow.Registry
	users    *querycache.Cache[*auth.User]
	themes   *theme.Factory
	limiter  *throttle.Limiter
	pages    *Pages

	srv router.Server[*fiber.App]
}

// New wires the application. The database pool is opened here, on first
// use, and released by Close.
func New(cfg *config.Config, lgr *glog.BaseLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: lgr,
	}

	steps := []func() error{
		app.withPersistence,
		app.withAuth,
		app.withSocial,
		app.withHTTPServer,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	if cfg.IsDevelopment() {
		app.GetLogger("app").Debug("configuration", "config", print.MaybePrettyJSON(cfg.Redacted()))
	}

	return app, nil
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) Router() router.Router[*fiber.App] {
	return a.srv.Router()
}

func (a *App) withPersistence() error {
	client, err := database.New(a.cfg.DatabaseURL,
		database.WithMaxConns(a.cfg.DatabaseMaxConns),
		database.WithQueryLogging(a.cfg.IsDevelopment()),
		database.WithLogger(a.GetLogger("database")),
	)
	if err != nil {
		return err
	}
	a.db = client

	db, err := client.DB()
	if err != nil {
		return err
	}

	a.repo = repository.NewManager(db)
	return a.repo.Validate()
}

func (a *App) withAuth() error {
	tokens := auth.NewTokenService(
		[]byte(a.cfg.AuthSecret),
		a.cfg.TokenExpiration(),
		a.cfg.AuthIssuer,
		auth.WithTokenLogger(a.GetLogger("auth:tokens")),
	)

	a.auther = auth.NewAuthenticator(a.repo, tokens,
		auth.WithAutherLogger(a.GetLogger("auth")),
		auth.WithActivitySink(auth.LoggerActivitySink(a.GetLogger("auth:activity"))),
	)

	a.httpAuth = auth.NewHTTPAuthenticator(a.auther, auth.HTTPConfig{
		CookieName: a.cfg.AuthCookieName,
		Secure:     a.cfg.SecureCookies(),
		Expiration: a.cfg.TokenExpiration(),
	})
	a.httpAuth.Logger = a.GetLogger("auth:http")

	a.users = querycache.New[*auth.User](CurrentUserTTL)
	a.pages = NewPages(a.httpAuth, a.users)
	a.httpAuth.UserLoader = a.pages.CurrentUser

	return nil
}

func (a *App) withSocial() error {
	var opts []social.SocialAuthOption
	opts = append(opts, social.WithLogger(a.GetLogger("social")))

	if a.cfg.GitHubEnabled() {
		opts = append(opts, social.WithProvider(github.New(github.Config{
			ClientID:     a.cfg.GitHubClientID,
			ClientSecret: a.cfg.GitHubClientSecret,
			CallbackURL:  a.cfg.CallbackURL("github"),
		})))
	}

	if a.cfg.GoogleEnabled() {
		opts = append(opts, social.WithProvider(google.New(google.Config{
			ClientID:     a.cfg.GoogleClientID,
			ClientSecret: a.cfg.GoogleClientSecret,
			CallbackURL:  a.cfg.CallbackURL("google"),
		})))
	}

	a.social = social.NewSocialAuthenticator(
		a.repo.Users(),
		a.repo.SocialAccounts(),
		a.auther,
		social.NewStateManagerFromSecret(a.cfg.AuthSecret, 10*time.Minute),
		opts...,
	)

	a.registry = authflow.NewRegistry(
		&authClient{auther: a.auther, social: a.social},
		a.users,
		authflow.WithLogger(a.GetLogger("authflow")),
	)

	return nil
}

func (a *App) withHTTPServer() error {
	engine := views.Engine(a.cfg.IsDevelopment())

	a.srv = router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return clientip.Capture(router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			PassLocalsToViews: true,
			Views:             engine,
		})))
	})

	a.srv.Router().WithLogger(a.GetLogger("router"))

	a.themes = theme.NewFactory(
		theme.WithFactoryStorageKey(a.cfg.ThemeStorageKey),
		theme.WithFactoryDefault(theme.Theme(a.cfg.ThemeDefault)),
		theme.WithSecureCookie(a.cfg.SecureCookies()),
		theme.WithFactoryLogger(a.GetLogger("theme")),
	)

	a.limiter = throttle.NewLimiter(throttle.Config{
		Rate:  10,
		Per:   time.Minute,
		Burst: 5,
	})

	a.routes(a.srv.Router())
	return nil
}

func (a *App) routes(r router.Router[*fiber.App]) {
	csrfKey := sha256.Sum256([]byte("csrf:" + a.cfg.AuthSecret))

	r.Use(auth.ClientID(auth.ClientIDConfig{Secure: a.cfg.SecureCookies()}))
	r.Use(csrf.New(csrf.Config{
		SecureKey:  csrfKey[:],
		BindingKey: auth.ClientIDLocalsKey,
	}))
	r.Use(a.themes.Middleware())
	r.Use(mflash.New(mflash.ConfigDefault))

	r.Static("/static", ".", router.Static{
		FS:   views.Assets(),
		Root: ".",
	})

	csrf.RegisterRoutes(r)

	r.Get("/", a.pages.Home, a.httpAuth.OptionalSession()).
		SetName("home")

	r.Get("/dashboard", a.pages.Dashboard, a.httpAuth.ProtectedRoute()).
		SetName("dashboard")

	r.Post("/theme", a.themes.UpdateHandler).
		SetName("theme.update")

	controller := auth.NewAuthController(a.registry, a.httpAuth,
		auth.WithControllerLogger(a.GetLogger("auth:ctrl")),
		auth.WithSocialProviders(a.social.Providers()...),
	)
	auth.RegisterAuthRoutes(r, controller, a.limiter.Middleware())

	socialController := social.NewHTTPController(a.social, a.httpAuth, social.HTTPConfig{
		Logger:     a.GetLogger("social:http"),
		AfterLogin: a.afterSocialLogin,
	})
	social.RegisterRoutes(r, socialController, a.httpAuth.ProtectedRoute())
}

// afterSocialLogin mirrors what a successful form submission does: drop
// the cached user and forget the client's forms.
func (a *App) afterSocialLogin(ctx router.Context, _ *social.AuthResult) {
	a.registry.Reset(auth.ClientIDFrom(ctx))
}

// Migrate creates the application tables.
func (a *App) Migrate(ctx context.Context) error {
	return a.db.Migrate(ctx, repository.Models()...)
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	logger := a.GetLogger("app")

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go a.janitor(janitorCtx, time.Minute)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", a.cfg.HTTPAddr, "base_url", a.cfg.BaseURL)
		errc <- a.srv.Serve(a.cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.srv.Shutdown(shutdownCtx)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
