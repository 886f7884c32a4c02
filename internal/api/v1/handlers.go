package apiv1

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/batch"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/leadership"
)

// APIServer serves the batch trigger endpoints
type APIServer struct {
	runner   *batch.Runner
	validate *validator.Validate
}

// NewAPIServer creates a new API server instance
func NewAPIServer(runner *batch.Runner) *APIServer {
	return &APIServer{runner: runner, validate: validator.New()}
}

// RegisterHandlers mounts the v1 routes. Everything except ping runs behind guards.
func RegisterHandlers(router fiber.Router, s *APIServer, guards ...fiber.Handler) {
	router.Get("/ping", s.GetPing)

	protected := router.Group("", guards...)
	protected.Post("/batch/accruals", s.PostAccruals)
	protected.Post("/batch/leadership", s.PostLeadership)
	protected.Get("/batch/runs", s.GetRuns)
	protected.Get("/batch/runs/:run_id", s.GetRun)
	protected.Post("/purchases", s.PostPurchase)
	protected.Post("/user-packages/:id/withdraw", s.PostWithdraw)
	protected.Post("/user-packages/:id/remine", s.PostRemine)
	protected.Get("/users/:id/balance", s.GetBalance)
	protected.Get("/users/:id/downline", s.GetDownline)
	protected.Get("/settings", s.GetSettings)
	protected.Put("/settings/:key", s.PutSetting)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// PostAccruals runs the daily or monthly accrual batch
func (s *APIServer) PostAccruals(c *fiber.Ctx) error {
	mode := c.Query("type")
	if mode != models.PackageModeDaily && mode != models.PackageModeMonthly {
		return badRequest(c, "Query parameter 'type' must be daily or monthly")
	}
	opts, ok := batchOptions(c)
	if !ok {
		return badRequest(c, "Query parameter 'user_id' must not be negative")
	}

	rep, err := s.runner.RunAccruals(c.UserContext(), mode, opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rep)
}

// PostLeadership runs the leadership override batch of a month
func (s *APIServer) PostLeadership(c *fiber.Ctx) error {
	opts, ok := batchOptions(c)
	if !ok {
		return badRequest(c, "Query parameter 'user_id' must not be negative")
	}

	rep, err := s.runner.RunLeadership(c.UserContext(), c.Query("cycle"), opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(rep)
}

// GetRuns lists recent batch runs
func (s *APIServer) GetRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		return badRequest(c, "Query parameter 'limit' must be between 1 and 100")
	}
	runs, err := s.runner.Runs(limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"runs": runs})
}

// GetRun returns one batch run with its report
func (s *APIServer) GetRun(c *fiber.Ctx) error {
	run, err := s.runner.Run(c.Params("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(run)
}

// PostPurchase buys a package and distributes its referral commissions
func (s *APIServer) PostPurchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rep, err := s.runner.Purchase(c.UserContext(), req.UserID, req.PackageID, req.DryRun)
	if err != nil {
		return writeError(c, err)
	}

	unit := rep.Units[0]
	switch unit.Status {
	case batch.StatusOK:
		return c.Status(fiber.StatusCreated).JSON(rep)
	case batch.StatusSkipped:
		return c.Status(statusFor(unit.Err())).JSON(rep)
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(rep)
	}
}

// PostWithdraw withdraws a matured package
func (s *APIServer) PostWithdraw(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return badRequest(c, "Invalid user package id")
	}
	up, err := s.runner.Withdraw(c.UserContext(), uint(id))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(up)
}

// PostRemine restarts a matured package
func (s *APIServer) PostRemine(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return badRequest(c, "Invalid user package id")
	}
	up, err := s.runner.Remine(c.UserContext(), uint(id))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(up)
}

// GetBalance returns the balance view of a user
func (s *APIServer) GetBalance(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return badRequest(c, "Invalid user id")
	}
	summary, err := s.runner.Balance(c.UserContext(), uint(id))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

// GetDownline returns the sponsorship tree below a user
func (s *APIServer) GetDownline(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return badRequest(c, "Invalid user id")
	}
	depth := c.QueryInt("depth", 0)
	if depth < 0 {
		return badRequest(c, "Query parameter 'depth' must not be negative")
	}
	downline, err := s.runner.Downline(uint(id), depth)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(downline)
}

// GetSettings returns the current compensation plan
func (s *APIServer) GetSettings(c *fiber.Ctx) error {
	cfg, err := s.runner.Settings()
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(cfg)
}

// PutSetting changes one compensation plan value
func (s *APIServer) PutSetting(c *fiber.Ctx) error {
	var req SettingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	cfg, err := s.runner.UpdateSetting(c.UserContext(), c.Params("key"), req.Value)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(cfg)
}

func batchOptions(c *fiber.Ctx) (batch.Options, bool) {
	userID := c.QueryInt("user_id", 0)
	if userID < 0 {
		return batch.Options{}, false
	}
	return batch.Options{UserID: uint(userID), DryRun: c.QueryBool("dry_run", false)}, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, batch.ErrBatchInProgress):
		return fiber.StatusConflict
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, batch.ErrUnknownSetting):
		return fiber.StatusNotFound
	case batch.IsRefusal(err), errors.Is(err, leadership.ErrInvalidPeriod), errors.Is(err, batch.ErrUnknownMode),
		errors.Is(err, batch.ErrInvalidSetting):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	code := map[int]string{
		fiber.StatusConflict:            "conflict",
		fiber.StatusNotFound:            "not_found",
		fiber.StatusUnprocessableEntity: "unprocessable_entity",
	}[status]
	if status == fiber.StatusInternalServerError {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(Error{Error: "internal_server_error", Message: "Internal server error"})
	}
	return c.Status(status).JSON(Error{Error: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: message})
}
