package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gastrolink/gastrolink/internal/pkg/security"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, issuer *security.TokenIssuer) {
	setup(app, NewApiRouter(issuer))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
