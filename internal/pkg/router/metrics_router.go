package router

import (
	"github.com/ManuelReschke/PayMatrix/internal/pkg/env"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
)

type MetricsRouter struct{}

func (h MetricsRouter) InstallRouter(app *fiber.App) {
	password := env.GetEnv("METRICS_PASSWORD", "")
	if password == "" {
		// no credentials, no scrape endpoint
		return
	}

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "metrics"): password,
		},
	}), adaptor.HTTPHandler(metrics.Handler()))
}

func NewMetricsRouter() *MetricsRouter {
	return &MetricsRouter{}
}
