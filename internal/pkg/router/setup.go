package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/caconnect/CAConnect/internal/pkg/docstore"
)

// Router installs a route group onto the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers every route group of the application.
func InstallRouter(app *fiber.App, store docstore.Store) {
	setup(app, NewApiRouter(store))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
