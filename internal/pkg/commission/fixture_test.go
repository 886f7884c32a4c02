package commission

import (
	"context"
	"testing"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/app/repository/memrepo"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cycle"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/graph"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memrepo.Store
	repos  *repository.Repositories
	engine *Engine
	cfg    *models.CompensationSettings
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memrepo.New(),
		engine: NewEngine(),
		cfg:    models.DefaultCompensationSettings(),
		clock:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.store.SetClock(func() time.Time { return f.clock })
	f.repos = f.store.GetRepositories()
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(name string, sponsorID uint) uint {
	f.t.Helper()
	u := &models.User{Name: name}
	if sponsorID != 0 {
		u.SponsorID = &sponsorID
	}
	require.NoError(f.t, f.repos.User.Create(u))
	f.clock = f.clock.Add(time.Second)
	return u.ID
}

func (f *fixture) dailyPackage(price, pct, target string, maturity int) uint {
	f.t.Helper()
	p := &models.Package{
		Name:            "daily " + price,
		Price:           dec(price),
		Mode:            models.PackageModeDaily,
		MaturityPeriod:  maturity,
		TargetValue:     dec(target),
		DailyPercentage: dec(pct),
	}
	require.NoError(f.t, f.repos.Package.Create(p))
	return p.ID
}

func (f *fixture) monthlyPackage(price string) uint {
	f.t.Helper()
	p := &models.Package{Name: "monthly " + price, Price: dec(price), Mode: models.PackageModeMonthly}
	require.NoError(f.t, f.repos.Package.Create(p))
	return p.ID
}

// own gives userID a package without charging for it.
func (f *fixture) own(userID, packageID uint) *models.UserPackage {
	f.t.Helper()
	pkg, err := f.repos.Package.GetByID(packageID)
	require.NoError(f.t, err)
	up := cycle.New(userID, pkg, f.cfg.BonusMonths)
	require.NoError(f.t, f.repos.UserPackage.Create(up))
	return up
}

func (f *fixture) deposit(userID uint, amount string) {
	f.t.Helper()
	require.NoError(f.t, f.unit(func(uow *repository.Repositories) error {
		_, err := ledger.Post(f.ctx, uow, ledger.Posting{UserID: userID, Type: models.TxTypeDeposit, Amount: dec(amount)})
		return err
	}))
}

func (f *fixture) graph() *graph.Graph {
	f.t.Helper()
	links, err := f.repos.User.ListSponsorLinks()
	require.NoError(f.t, err)
	return graph.Build(links)
}

func (f *fixture) unit(fn func(uow *repository.Repositories) error) error {
	return f.store.Transaction(f.ctx, fn)
}

func (f *fixture) buy(userID, packageID uint) (*Outcome, error) {
	g := f.graph()
	var out *Outcome
	err := f.unit(func(uow *repository.Repositories) error {
		var err error
		out, err = f.engine.BuyPackage(f.ctx, uow, g, f.cfg, userID, packageID)
		return err
	})
	return out, err
}

func (f *fixture) accrueDaily(ownerID uint, packageIDs ...uint) *Outcome {
	f.t.Helper()
	var out *Outcome
	require.NoError(f.t, f.unit(func(uow *repository.Repositories) error {
		var err error
		out, err = f.engine.AccrueDaily(f.ctx, uow, NewBook(uow), f.cfg, ownerID, packageIDs, f.clock)
		return err
	}))
	return out
}

func (f *fixture) status(userID uint) string {
	f.t.Helper()
	u, err := f.repos.User.GetByID(userID)
	require.NoError(f.t, err)
	return u.Status
}

func (f *fixture) requireConsistent(userIDs ...uint) {
	f.t.Helper()
	for _, id := range userIDs {
		summary, err := ledger.Reconcile(f.ctx, f.repos, id)
		require.NoError(f.t, err)
		require.True(f.t, summary.Consistent, "user %d balance %s ledger %s", id, summary.Balance, summary.LedgerTotal)
	}
}
