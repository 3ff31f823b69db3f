package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Routes describes what RegisterRoutes mounts. Views for the page come from
// the Fiber app configuration.
type Routes struct {
	// TemplateName is the fixed template rendered at "/".
	TemplateName string
	// StaticDir is served under /static when not empty.
	StaticDir string
	// Metrics is served at /metrics when not nil.
	Metrics http.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, r Routes) {
	app.Get("/", Home(r.TemplateName))
	app.Get("/healthz", LivenessProbe())

	if r.StaticDir != "" {
		app.Static("/static", r.StaticDir)
	}

	if r.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(r.Metrics))
	}
}

// Home renders the fixed page template. Nothing from the request is consulted.
func Home(templateName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Render(templateName, nil)
	}
}

// LivenessProbe reports that the process is up.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
