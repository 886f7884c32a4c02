// Package batch runs the compensation units of work. Every unit is its own transaction;
// a failing unit is rolled back and reported while the batch carries on.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cache"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/commission"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cycle"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/graph"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/leadership"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrBatchInProgress is returned when a batch of the same kind is already running.
	ErrBatchInProgress = errors.New("batch already in progress")
	// ErrUnknownMode is returned for accrual modes other than daily and monthly.
	ErrUnknownMode = errors.New("unknown accrual mode")
	// ErrUnknownSetting is returned for keys that are not part of the compensation plan.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidSetting is returned when a new value leaves the plan unparsable or invalid.
	ErrInvalidSetting = errors.New("invalid setting")

	errDryRun = errors.New("dry run")
)

// Locker prevents overlapping batches of one kind.
type Locker interface {
	Lock(ctx context.Context, name string) (func(), error)
}

// Archiver stores finished reports outside the database.
type Archiver interface {
	ArchiveReport(ctx context.Context, kind, runID string, at time.Time, body []byte) (string, error)
}

// Options narrow a batch invocation.
type Options struct {
	UserID uint
	DryRun bool
}

// Runner executes batches against a store.
type Runner struct {
	store       repository.Transactor
	engine      *commission.Engine
	distributor *leadership.Distributor
	locker      Locker
	archiver    Archiver
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLocker guards batches with a distributed lock.
func WithLocker(l Locker) Option {
	return func(r *Runner) { r.locker = l }
}

// WithArchiver uploads finished reports.
func WithArchiver(a Archiver) Option {
	return func(r *Runner) { r.archiver = a }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a batch runner.
func NewRunner(store repository.Transactor, opts ...Option) *Runner {
	r := &Runner{
		store:       store,
		engine:      commission.NewEngine(),
		distributor: leadership.NewDistributor(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAccruals pays the due accruals of one package mode.
func (r *Runner) RunAccruals(ctx context.Context, mode string, opts Options) (*Report, error) {
	var kind string
	switch mode {
	case models.PackageModeDaily:
		kind = models.BatchKindDailyAccruals
	case models.PackageModeMonthly:
		kind = models.BatchKindMonthlyAccruals
	default:
		return nil, fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}

	release, err := r.lock(ctx, kind)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := r.settings()
	if err != nil {
		return nil, err
	}
	rep := r.newReport(kind, scope(opts.UserID, ""), opts.DryRun, cfg)
	now := rep.StartedAt

	if mode == models.PackageModeDaily {
		err = r.dailyAccruals(ctx, rep, cfg, now, opts)
	} else {
		err = r.monthlyAccruals(ctx, rep, cfg, now, opts)
	}
	if err != nil {
		return nil, err
	}
	return r.finish(ctx, rep), nil
}

func (r *Runner) dailyAccruals(ctx context.Context, rep *Report, cfg *models.CompensationSettings,
	now time.Time, opts Options) error {
	pkgs, err := r.store.GetRepositories().UserPackage.ListActiveDaily(opts.UserID)
	if err != nil {
		return fmt.Errorf("failed to list daily packages: %w", err)
	}

	var owners []uint
	byOwner := map[uint][]uint{}
	for _, up := range pkgs {
		if _, ok := byOwner[up.UserID]; !ok {
			owners = append(owners, up.UserID)
		}
		byOwner[up.UserID] = append(byOwner[up.UserID], up.ID)
	}

	for _, owner := range owners {
		if r.cancelled(ctx, rep) {
			break
		}
		var out *commission.Outcome
		err := r.unit(ctx, opts.DryRun, func(uow *repository.Repositories) ([]*models.EwalletTransaction, error) {
			var err error
			out, err = r.engine.AccrueDaily(ctx, uow, commission.NewBook(uow), cfg, owner, byOwner[owner], now)
			if err != nil {
				return nil, err
			}
			return out.Entries, nil
		})
		rep.add(outcomeResult(fmt.Sprintf("user:%d", owner), owner, out, err))
	}
	return nil
}

func (r *Runner) monthlyAccruals(ctx context.Context, rep *Report, cfg *models.CompensationSettings,
	now time.Time, opts Options) error {
	pkgs, err := r.store.GetRepositories().UserPackage.ListDueMonthly(now, opts.UserID)
	if err != nil {
		return fmt.Errorf("failed to list monthly packages: %w", err)
	}

	for _, up := range pkgs {
		if r.cancelled(ctx, rep) {
			break
		}
		id := up.ID
		var out *commission.Outcome
		err := r.unit(ctx, opts.DryRun, func(uow *repository.Repositories) ([]*models.EwalletTransaction, error) {
			var err error
			out, err = r.engine.AccrueMonthly(ctx, uow, cfg, id, now)
			if err != nil {
				return nil, err
			}
			return out.Entries, nil
		})
		rep.add(outcomeResult(fmt.Sprintf("user_package:%d", id), up.UserID, out, err))
	}
	return nil
}

// RunLeadership distributes the overrides of a month. An empty cycle means the previous month.
func (r *Runner) RunLeadership(ctx context.Context, cycleStart string, opts Options) (*Report, error) {
	var period leadership.Period
	if cycleStart == "" {
		period = leadership.PeriodOf(r.now()).Previous()
	} else {
		p, err := leadership.ParsePeriod(cycleStart)
		if err != nil {
			return nil, err
		}
		period = p
	}

	release, err := r.lock(ctx, models.BatchKindLeadership)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := r.settings()
	if err != nil {
		return nil, err
	}
	rep := r.newReport(models.BatchKindLeadership, scope(opts.UserID, period.String()), opts.DryRun, cfg)
	if !cfg.LeadershipEnabled {
		rep.Message = "leadership bonus is disabled"
		return r.finish(ctx, rep), nil
	}

	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	beneficiaries, err := r.distributor.Beneficiaries(r.store.GetRepositories(), period, opts.UserID)
	if err != nil {
		return nil, err
	}

	for _, beneficiaryID := range beneficiaries {
		if r.cancelled(ctx, rep) {
			break
		}
		id := beneficiaryID
		var res *leadership.Result
		err := r.unit(ctx, opts.DryRun, func(uow *repository.Repositories) ([]*models.EwalletTransaction, error) {
			var err error
			res, err = r.distributor.Distribute(ctx, uow, g, cfg, period, id)
			if err != nil {
				return nil, err
			}
			return res.Entries, nil
		})

		u := UnitResult{Key: fmt.Sprintf("beneficiary:%d", id), UserID: id, Amount: decimal.Zero}
		switch {
		case err != nil:
			u.fail(err)
		case len(res.Overrides) == 0 && res.Previous.IsZero():
			u.Status = StatusSkipped
			u.Detail = res
		default:
			u.Status = StatusOK
			u.Amount = res.Total()
			u.Detail = res
		}
		rep.add(u)
	}
	return r.finish(ctx, rep), nil
}

// Purchase buys a package for a user and distributes its referral commissions.
func (r *Runner) Purchase(ctx context.Context, userID, packageID uint, dryRun bool) (*Report, error) {
	cfg, err := r.settings()
	if err != nil {
		return nil, err
	}
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	rep := r.newReport(models.BatchKindPurchase, fmt.Sprintf("user:%d package:%d", userID, packageID), dryRun, cfg)

	var out *commission.Outcome
	err = r.unit(ctx, dryRun, func(uow *repository.Repositories) ([]*models.EwalletTransaction, error) {
		var err error
		out, err = r.engine.BuyPackage(ctx, uow, g, cfg, userID, packageID)
		if err != nil {
			return nil, err
		}
		return out.Entries, nil
	})
	rep.add(outcomeResult(fmt.Sprintf("user:%d", userID), userID, out, err))
	return r.finish(ctx, rep), nil
}

// Withdraw closes a matured package and refunds its price to the owner.
func (r *Runner) Withdraw(ctx context.Context, userPackageID uint) (*models.UserPackage, error) {
	cfg, err := r.settings()
	if err != nil {
		return nil, err
	}

	var up *models.UserPackage
	var entry *models.EwalletTransaction
	err = r.store.Transaction(ctx, func(uow *repository.Repositories) error {
		var err error
		if up, err = uow.UserPackage.GetByIDForUpdate(userPackageID); err != nil {
			return fmt.Errorf("package %d: %w", userPackageID, err)
		}
		if err := cycle.Withdraw(up, cfg.BonusMonths); err != nil {
			return err
		}
		if err := uow.UserPackage.Update(up); err != nil {
			return fmt.Errorf("failed to withdraw package %d: %w", up.ID, err)
		}
		entry, err = ledger.Post(ctx, uow, ledger.Posting{
			UserID:      up.UserID,
			Type:        models.TxTypeRefund,
			Amount:      up.Price,
			Description: fmt.Sprintf("Refund of withdrawn package #%d", up.ID),
			ReferenceID: &up.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPosting(entry.Type, entry.Amount)
	log.Infof("[Batch] Package %d of user %d withdrawn, refunded %s", up.ID, up.UserID, up.Price)
	return up, nil
}

// Remine restarts a matured package at cycle one.
func (r *Runner) Remine(ctx context.Context, userPackageID uint) (*models.UserPackage, error) {
	cfg, err := r.settings()
	if err != nil {
		return nil, err
	}

	var up *models.UserPackage
	err = r.store.Transaction(ctx, func(uow *repository.Repositories) error {
		var err error
		if up, err = uow.UserPackage.GetByIDForUpdate(userPackageID); err != nil {
			return fmt.Errorf("package %d: %w", userPackageID, err)
		}
		if err := cycle.Remine(up, cfg.BonusMonths); err != nil {
			return err
		}
		if err := uow.UserPackage.Update(up); err != nil {
			return fmt.Errorf("failed to remine package %d: %w", up.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Batch] Package %d of user %d remined", up.ID, up.UserID)
	return up, nil
}

// Balance returns the reconciled balance view of a user.
func (r *Runner) Balance(ctx context.Context, userID uint) (*ledger.Summary, error) {
	repos := r.store.GetRepositories()
	if _, err := repos.User.GetByID(userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return ledger.Reconcile(ctx, repos, userID)
}

// Downline is the sponsorship view of one user.
type Downline struct {
	UserID    uint        `json:"user_id"`
	SponsorID *uint       `json:"sponsor_id"`
	Depth     int         `json:"depth"`
	Size      int         `json:"size"`
	Tree      *graph.Tree `json:"tree"`
}

// Downline returns the descendant tree of a user, at most depth levels deep.
func (r *Runner) Downline(userID uint, depth int) (*Downline, error) {
	if _, err := r.store.GetRepositories().User.GetByID(userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	g, err := r.graph()
	if err != nil {
		return nil, err
	}
	if depth <= 0 || depth > graph.MaxDepth {
		depth = graph.MaxDepth
	}

	d := &Downline{UserID: userID, Depth: depth, Tree: g.Descendants(userID, depth)}
	if sponsorID, ok := g.Sponsor(userID); ok {
		d.SponsorID = &sponsorID
	}
	d.Size = d.Tree.Size()
	return d, nil
}

// Settings returns the current compensation plan snapshot.
func (r *Runner) Settings() (*models.CompensationSettings, error) {
	return r.settings()
}

// UpdateSetting stores one plan value. The change is rolled back when the resulting plan
// does not parse or validate.
func (r *Runner) UpdateSetting(ctx context.Context, key, value string) (*models.CompensationSettings, error) {
	if !models.IsCompensationKey(key) {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownSetting)
	}

	var cfg *models.CompensationSettings
	err := r.store.Transaction(ctx, func(uow *repository.Repositories) error {
		if err := uow.Setting.SetValue(key, value); err != nil {
			return fmt.Errorf("failed to store setting %s: %w", key, err)
		}
		var err error
		if cfg, err = uow.Setting.GetCompensation(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Batch] Setting %s changed to %q, plan version %d", key, value, cfg.Version)
	return cfg, nil
}

// Runs lists the most recent batch audit rows.
func (r *Runner) Runs(limit int) ([]models.BatchRun, error) {
	return r.store.GetRepositories().BatchRun.ListRecent(limit)
}

// Run returns one batch audit row.
func (r *Runner) Run(runID string) (*models.BatchRun, error) {
	return r.store.GetRepositories().BatchRun.GetByRunID(runID)
}

// unit runs fn in its own transaction. Dry runs execute identically and roll back.
func (r *Runner) unit(ctx context.Context, dryRun bool,
	fn func(uow *repository.Repositories) ([]*models.EwalletTransaction, error)) error {
	var entries []*models.EwalletTransaction
	err := r.store.Transaction(ctx, func(uow *repository.Repositories) error {
		var err error
		if entries, err = fn(uow); err != nil {
			return err
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if dryRun && errors.Is(err, errDryRun) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		metrics.RecordPosting(e.Type, e.Amount)
	}
	return nil
}

func (r *Runner) lock(ctx context.Context, kind string) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	release, err := r.locker.Lock(ctx, kind)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, fmt.Errorf("%s: %w", kind, ErrBatchInProgress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s batch: %w", kind, err)
	}
	return release, nil
}

func (r *Runner) settings() (*models.CompensationSettings, error) {
	cfg, err := r.store.GetRepositories().Setting.GetCompensation()
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation settings: %w", err)
	}
	return cfg, nil
}

func (r *Runner) graph() (*graph.Graph, error) {
	links, err := r.store.GetRepositories().User.ListSponsorLinks()
	if err != nil {
		return nil, fmt.Errorf("failed to load sponsorship graph: %w", err)
	}
	g := graph.Build(links)
	log.Debugf("[Batch] Sponsorship graph loaded with %d users", g.Len())
	return g, nil
}

func (r *Runner) newReport(kind, scope string, dryRun bool, cfg *models.CompensationSettings) *Report {
	rep := &Report{
		RunID:         uuid.NewString(),
		Kind:          kind,
		Scope:         scope,
		DryRun:        dryRun,
		ConfigVersion: cfg.Version,
		StartedAt:     r.now().UTC(),
		Units:         []UnitResult{},
	}
	log.Infof("[Batch] Starting %s run %s (scope %q, dry run %t)", kind, rep.RunID, scope, dryRun)
	return rep
}

func (r *Runner) cancelled(ctx context.Context, rep *Report) bool {
	if err := ctx.Err(); err != nil {
		rep.Message = fmt.Sprintf("stopped early: %v", err)
		return true
	}
	return false
}

// finish stamps, archives, persists and meters the report. Persistence failures are
// logged; the report itself is still returned.
func (r *Runner) finish(ctx context.Context, rep *Report) *Report {
	rep.FinishedAt = r.now().UTC()
	rep.Total = rep.sumAmounts().StringFixed(2)

	if r.archiver != nil && !rep.DryRun && len(rep.Units) > 0 {
		body, err := json.Marshal(rep)
		if err == nil {
			rep.ArchiveKey, err = r.archiver.ArchiveReport(ctx, rep.Kind, rep.RunID, rep.StartedAt, body)
		}
		if err != nil {
			log.Warnf("[Batch] Failed to archive report %s: %v", rep.RunID, err)
		}
	}

	row, err := rep.toModel()
	if err == nil {
		err = r.store.GetRepositories().BatchRun.Create(row)
	}
	if err != nil {
		log.Errorf("[Batch] Failed to persist report %s: %v", rep.RunID, err)
	}

	metrics.RecordRun(rep.Kind, rep.Outcome(), rep.FinishedAt.Sub(rep.StartedAt))
	for _, u := range rep.Units {
		metrics.RecordUnit(rep.Kind, u.Status)
	}
	log.Infof("[Batch] Finished %s run %s: %d ok, %d skipped, %d failed, total %s",
		rep.Kind, rep.RunID, rep.Succeeded, rep.Skipped, rep.Failed, rep.Total)
	return rep
}

func outcomeResult(key string, userID uint, out *commission.Outcome, err error) UnitResult {
	u := UnitResult{Key: key, UserID: userID, Amount: decimal.Zero}
	if err != nil {
		u.fail(err)
		return u
	}
	u.Detail = out
	u.Amount = out.Total()
	u.Status = StatusOK
	if len(out.Payouts) == 0 {
		u.Status = StatusSkipped
	}
	return u
}

func (u *UnitResult) fail(err error) {
	u.err = err
	u.Error = err.Error()
	u.Status = StatusFailed
	if IsRefusal(err) {
		u.Status = StatusSkipped
	}
}

// IsRefusal reports whether err means the unit was refused by a business rule
// rather than broken by the store.
func IsRefusal(err error) bool {
	return ledger.IsValidation(err) ||
		errors.Is(err, cycle.ErrNotEligible) ||
		errors.Is(err, commission.ErrBuyerSuspended) ||
		errors.Is(err, repository.ErrNotFound)
}

func scope(userID uint, prefix string) string {
	switch {
	case userID == 0 && prefix == "":
		return "all"
	case userID == 0:
		return prefix
	case prefix == "":
		return fmt.Sprintf("user:%d", userID)
	default:
		return fmt.Sprintf("%s user:%d", prefix, userID)
	}
}
