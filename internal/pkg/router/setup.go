package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, runner *batch.Runner) {
	// Metrics first so the scrape endpoint stays outside the API rate limiter.
	setup(app, NewMetricsRouter(), NewApiRouter(runner))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
