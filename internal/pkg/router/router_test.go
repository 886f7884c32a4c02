package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayMatrix/app/repository/memrepo"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
)

func TestInstallRouter(t *testing.T) {
	t.Setenv("METRICS_USER", "scraper")
	t.Setenv("METRICS_PASSWORD", "pw")
	t.Setenv("BATCH_SECRET_HASH", "")

	app := fiber.New()
	InstallRouter(app, batch.NewRunner(memrepo.New()))

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		want   int
	}{
		{"api index", http.MethodGet, "/api", false, fiber.StatusOK},
		{"ping", http.MethodGet, "/api/v1/ping", false, fiber.StatusOK},
		{"trigger without configured secret", http.MethodPost, "/api/v1/batch/accruals?type=daily", false, fiber.StatusServiceUnavailable},
		{"metrics without credentials", http.MethodGet, "/metrics", false, fiber.StatusUnauthorized},
		{"metrics", http.MethodGet, "/metrics", true, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.SetBasicAuth("scraper", "pw")
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
