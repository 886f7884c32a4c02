package router

import (
	apiv1 "github.com/ManuelReschke/PayMatrix/internal/api/v1"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/env"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	runner *batch.Runner
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "PayMatrix batch api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer(h.runner)
	apiv1.RegisterHandlers(v1, apiServer, middleware.BatchSecretMiddleware(env.GetEnv("BATCH_SECRET_HASH", "")))
}

func NewApiRouter(runner *batch.Runner) *ApiRouter {
	return &ApiRouter{runner: runner}
}
