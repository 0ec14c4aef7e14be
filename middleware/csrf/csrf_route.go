package csrf

import "github.com/goliatone/go-router"

// RouteConfig controls the token bootstrap endpoint.
type RouteConfig struct {
	Path          string
	ContextKey    string
	FormFieldName string
	HeaderName    string
	RouteName     string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "csrf.get"
)

// RegisterRoutes adds a GET endpoint returning the request token for
// scripts that post with the header instead of the form field. The
// middleware must run before it.
func RegisterRoutes[T any](app router.Router[T], cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, TokenHandler(conf)).SetName(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:          defaultRoutePath,
		ContextKey:    DefaultContextKey,
		FormFieldName: DefaultFormFieldName,
		HeaderName:    DefaultHeaderName,
		RouteName:     defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}
	if c.FormFieldName != "" {
		conf.FormFieldName = c.FormFieldName
	}
	if c.HeaderName != "" {
		conf.HeaderName = c.HeaderName
	}
	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}

	return conf
}

func TokenHandler(cfg RouteConfig) router.HandlerFunc {
	return func(ctx router.Context) error {
		token, _ := ctx.Locals(cfg.ContextKey).(string)
		if token == "" {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"error": ErrTokenMissing.Message,
			})
		}

		ctx.SetHeader("Cache-Control", "no-store, max-age=0")
		ctx.SetHeader("Pragma", "no-cache")

		return ctx.JSON(router.StatusOK, map[string]string{
			"token":       token,
			"field_name":  cfg.FormFieldName,
			"header_name": cfg.HeaderName,
		})
	}
}
