// Package clientip publishes the remote address of a request to go-router
// handlers. The router Context does not expose it, so a fiber handler
// installed at app construction stores it in the request locals.
package clientip

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

const (
	// LocalsKey holds the client address for the rest of the chain
	LocalsKey = "client_ip"
	// Unknown is returned when Capture did not run for the request
	Unknown = "unknown"
)

// Capture is a fiber adapter option. It must be applied before routes are
// mounted so it runs ahead of every go-router handler.
func Capture(app *fiber.App) *fiber.App {
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalsKey, c.IP())
		return c.Next()
	})
	return app
}

// From returns the address stored by Capture.
func From(ctx router.Context) string {
	if ip, ok := ctx.Locals(LocalsKey).(string); ok && ip != "" {
		return ip
	}
	return Unknown
}
