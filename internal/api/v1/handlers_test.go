package apiv1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/app/repository/memrepo"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/middleware"
)

const testSecret = "trigger-secret"

type testAPI struct {
	app   *fiber.App
	store *memrepo.Store
	repos *repository.Repositories
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	require.NoError(t, err)

	clock := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	store := memrepo.New()
	store.SetClock(func() time.Time { return clock })
	runner := batch.NewRunner(store, batch.WithClock(func() time.Time { return clock }))

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(runner), middleware.BatchSecretMiddleware(string(hash)))
	return &testAPI{app: app, store: store, repos: store.GetRepositories()}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(middleware.BatchSecretHeader, testSecret)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testAPI) seedPurchase(t *testing.T) (sponsor, buyer, pkg uint) {
	t.Helper()
	s := &models.User{Name: "sponsor"}
	require.NoError(t, a.repos.User.Create(s))
	b := &models.User{Name: "buyer", SponsorID: &s.ID}
	require.NoError(t, a.repos.User.Create(b))
	p := &models.Package{Name: "monthly 200", Price: decimal.NewFromInt(200), Mode: models.PackageModeMonthly}
	require.NoError(t, a.repos.Package.Create(p))
	return s.ID, b.ID, p.ID
}

func (a *testAPI) deposit(t *testing.T, userID uint, amount int64) {
	t.Helper()
	require.NoError(t, a.store.Transaction(context.Background(), func(uow *repository.Repositories) error {
		_, err := ledger.Post(context.Background(), uow, ledger.Posting{UserID: userID, Type: models.TxTypeDeposit, Amount: decimal.NewFromInt(amount)})
		return err
	}))
}

func TestPingIsPublic(t *testing.T) {
	api := setupTestAPI(t)
	resp, err := api.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTriggersRequireSecret(t *testing.T) {
	api := setupTestAPI(t)
	resp, err := api.app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/batch/accruals?type=daily", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPostAccruals(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"daily", "/api/v1/batch/accruals?type=daily", fiber.StatusOK},
		{"monthly dry run", "/api/v1/batch/accruals?type=monthly&dry_run=true", fiber.StatusOK},
		{"missing type", "/api/v1/batch/accruals", fiber.StatusBadRequest},
		{"negative user", "/api/v1/batch/accruals?type=daily&user_id=-1", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := api.do(t, http.MethodPost, tt.path, "")
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestPostLeadership(t *testing.T) {
	api := setupTestAPI(t)

	status, body := api.do(t, http.MethodPost, "/api/v1/batch/leadership?cycle=2025-02-01", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "leadership bonus is disabled", body["message"])

	status, body = api.do(t, http.MethodPost, "/api/v1/batch/leadership?cycle=2025-02-14", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "unprocessable_entity", body["error"])
}

func TestPostPurchase(t *testing.T) {
	api := setupTestAPI(t)
	sponsor, buyer, pkg := api.seedPurchase(t)
	payload := `{"user_id":` + itoa(buyer) + `,"package_id":` + itoa(pkg) + `}`

	status, _ := api.do(t, http.MethodPost, "/api/v1/purchases", payload)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	api.deposit(t, buyer, 200)
	status, body := api.do(t, http.MethodPost, "/api/v1/purchases", payload)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, float64(1), body["succeeded"])

	status, body = api.do(t, http.MethodGet, "/api/v1/users/"+itoa(sponsor)+"/balance", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "10", body["balance"])
	assert.Equal(t, true, body["consistent"])

	status, _ = api.do(t, http.MethodPost, "/api/v1/purchases", `{"user_id":0}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodPost, "/api/v1/purchases", `{"user_id":99,"package_id":`+itoa(pkg)+`}`)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUserPackageTransitions(t *testing.T) {
	api := setupTestAPI(t)
	_, buyer, pkg := api.seedPurchase(t)
	api.deposit(t, buyer, 200)
	status, _ := api.do(t, http.MethodPost, "/api/v1/purchases", `{"user_id":`+itoa(buyer)+`,"package_id":`+itoa(pkg)+`}`)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := api.do(t, http.MethodPost, "/api/v1/user-packages/1/withdraw", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body["message"], "not eligible")

	status, _ = api.do(t, http.MethodPost, "/api/v1/user-packages/42/remine", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do(t, http.MethodPost, "/api/v1/user-packages/abc/withdraw", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestBatchRunsListing(t *testing.T) {
	api := setupTestAPI(t)
	status, body := api.do(t, http.MethodPost, "/api/v1/batch/accruals?type=daily", "")
	require.Equal(t, fiber.StatusOK, status)
	runID := body["run_id"].(string)

	status, body = api.do(t, http.MethodGet, "/api/v1/batch/runs?limit=5", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["runs"], 1)

	status, body = api.do(t, http.MethodGet, "/api/v1/batch/runs/"+runID, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.BatchKindDailyAccruals, body["kind"])

	status, _ = api.do(t, http.MethodGet, "/api/v1/batch/runs/unknown", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestBalanceOfUnknownUser(t *testing.T) {
	api := setupTestAPI(t)
	status, body := api.do(t, http.MethodGet, "/api/v1/users/7/balance", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestSettings(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name string
		key  string
		body string
		want int
	}{
		{"valid change", models.SettingBonusMonths, `{"value":"6"}`, fiber.StatusOK},
		{"fails validation", models.SettingReferralMaxLevel, `{"value":"1"}`, fiber.StatusUnprocessableEntity},
		{"not a number", models.SettingMinDirectCount, `{"value":"many"}`, fiber.StatusUnprocessableEntity},
		{"unknown key", "site_title", `{"value":"PayMatrix"}`, fiber.StatusNotFound},
		{"missing value", models.SettingBonusMonths, `{}`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := api.do(t, http.MethodPut, "/api/v1/settings/"+tt.key, tt.body)
			assert.Equal(t, tt.want, status)
		})
	}

	status, body := api.do(t, http.MethodGet, "/api/v1/settings", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(6), body["bonus_months"])
	assert.Equal(t, float64(5), body["referral_max_level"], "rejected change was rolled back")
}

func TestGetDownline(t *testing.T) {
	api := setupTestAPI(t)
	sponsor, buyer, _ := api.seedPurchase(t)

	status, body := api.do(t, http.MethodGet, "/api/v1/users/"+itoa(sponsor)+"/downline?depth=3", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["size"])
	assert.Equal(t, float64(3), body["depth"])
	assert.Nil(t, body["sponsor_id"])
	tree := body["tree"].(map[string]interface{})
	children := tree["children"].([]interface{})
	require.Len(t, children, 1)
	assert.Equal(t, float64(buyer), children[0].(map[string]interface{})["id"])

	status, body = api.do(t, http.MethodGet, "/api/v1/users/"+itoa(buyer)+"/downline", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(sponsor), body["sponsor_id"])
	assert.Equal(t, float64(0), body["size"])

	status, _ = api.do(t, http.MethodGet, "/api/v1/users/77/downline", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do(t, http.MethodGet, "/api/v1/users/"+itoa(sponsor)+"/downline?depth=-1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
