package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/caconnect/CAConnect/internal/api/v1"
	"github.com/caconnect/CAConnect/internal/pkg/docstore"
)

type ApiRouter struct {
	store docstore.Store
}

func NewApiRouter(store docstore.Store) *ApiRouter {
	return &ApiRouter{store: store}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max: 120,
		// Webhooks retry on 429; keep the gateway outside the limiter bucket.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/webhooks/payments"
		},
	}))

	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer(h.store)
	apiv1.RegisterHandlers(v1, apiServer)
}
