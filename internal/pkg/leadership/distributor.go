// Package leadership distributes monthly override commissions on downline accruals
// to qualifying uplines.
package leadership

import (
	"context"
	"fmt"
	"sort"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/graph"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/shopspring/decimal"
)

// Override is one posted leadership amount.
type Override struct {
	SponsorID  uint            `json:"sponsor_id"`
	Level      int             `json:"level"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Result is the outcome of one beneficiary's cascade.
type Result struct {
	BeneficiaryID uint                         `json:"beneficiary_id"`
	Period        string                       `json:"period"`
	PeriodTotal   decimal.Decimal              `json:"period_total"`
	Previous      decimal.Decimal              `json:"previous"`
	Overrides     []Override                   `json:"overrides"`
	Adjustments   []Override                   `json:"adjustments,omitempty"`
	StoppedAt     int                          `json:"stopped_at,omitempty"`
	StopReason    string                       `json:"stop_reason,omitempty"`
	Entries       []*models.EwalletTransaction `json:"-"`
}

// Total sums the overrides the beneficiary's cascade now carries.
func (r *Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, o := range r.Overrides {
		total = total.Add(o.Amount)
	}
	return total
}

// Net is the ledger movement of this run: current overrides minus the replaced ones.
func (r *Result) Net() decimal.Decimal {
	return r.Total().Sub(r.Previous)
}

// Qualification is the direct-downline standing of a candidate upline.
type Qualification struct {
	Holders   int
	Volume    decimal.Decimal
	Qualified bool
}

// Distributor runs the override cascade.
type Distributor struct{}

// NewDistributor creates a leadership distributor.
func NewDistributor() *Distributor {
	return &Distributor{}
}

// Beneficiaries returns every user with accruals in the period or with postings recorded
// for it, so that a re-run also clears postings whose basis disappeared.
func (d *Distributor) Beneficiaries(uow *repository.Repositories, p Period, userID uint) ([]uint, error) {
	totals, err := uow.BonusWallet.TotalsBetween(p.Start(), p.End(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accruals: %w", err)
	}
	existing, err := uow.Leadership.ListByPeriod(p.String(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leadership postings: %w", err)
	}

	seen := map[uint]struct{}{}
	for _, t := range totals {
		seen[t.UserID] = struct{}{}
	}
	for _, e := range existing {
		seen[e.BeneficiaryID] = struct{}{}
	}
	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Distribute replaces the beneficiary's postings of the period with freshly computed ones.
// Only the difference per sponsor reaches the ledger, so a re-run with unchanged inputs
// posts nothing.
func (d *Distributor) Distribute(ctx context.Context, uow *repository.Repositories, g *graph.Graph,
	cfg *models.CompensationSettings, p Period, beneficiaryID uint) (*Result, error) {
	res := &Result{BeneficiaryID: beneficiaryID, Period: p.String(), PeriodTotal: decimal.Zero, Previous: decimal.Zero}

	existing, err := uow.Leadership.ListByPeriod(p.String(), beneficiaryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leadership postings: %w", err)
	}
	if err := d.plan(uow, g, cfg, p, beneficiaryID, res); err != nil {
		return nil, err
	}

	previous := map[uint]models.LeadershipPassive{}
	for _, old := range existing {
		res.Previous = res.Previous.Add(old.Amount)
		if prev, ok := previous[old.SponsorID]; ok {
			old.Amount = old.Amount.Add(prev.Amount)
		}
		previous[old.SponsorID] = old
	}

	current := map[uint]decimal.Decimal{}
	sponsors := make([]uint, 0, len(res.Overrides)+len(previous))
	for _, o := range res.Overrides {
		current[o.SponsorID] = o.Amount
		sponsors = append(sponsors, o.SponsorID)
	}
	for id := range previous {
		if _, ok := current[id]; !ok {
			sponsors = append(sponsors, id)
		}
	}
	sort.Slice(sponsors, func(i, j int) bool { return sponsors[i] < sponsors[j] })

	txIDs := map[uint]uint{}
	for _, sponsorID := range sponsors {
		old := previous[sponsorID]
		amount, ok := current[sponsorID]
		if !ok {
			amount = decimal.Zero
		}
		delta := amount.Sub(old.Amount)
		txIDs[sponsorID] = old.TransactionID
		if delta.Round(models.MoneyScale).IsZero() {
			continue
		}
		beneficiary := beneficiaryID
		entry, err := ledger.Post(ctx, uow, ledger.Posting{
			UserID:      sponsorID,
			Type:        models.TxTypeLeadership,
			Amount:      delta,
			Description: fmt.Sprintf("Leadership bonus adjustment for %s from user #%d", p, beneficiaryID),
			ReferenceID: &beneficiary,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to post leadership adjustment for user %d: %w", sponsorID, err)
		}
		txIDs[sponsorID] = entry.ID
		res.Adjustments = append(res.Adjustments, Override{SponsorID: sponsorID, Amount: delta})
		res.Entries = append(res.Entries, entry)
	}

	for _, old := range existing {
		if err := uow.Leadership.Delete(old.ID); err != nil {
			return nil, fmt.Errorf("failed to delete leadership posting %d: %w", old.ID, err)
		}
	}
	for _, o := range res.Overrides {
		if err := uow.Leadership.Create(&models.LeadershipPassive{
			SponsorID:     o.SponsorID,
			BeneficiaryID: beneficiaryID,
			Level:         o.Level,
			MonthCycle:    p.String(),
			Percentage:    o.Percentage,
			PeriodTotal:   res.PeriodTotal,
			Amount:        o.Amount,
			TransactionID: txIDs[o.SponsorID],
		}); err != nil {
			return nil, fmt.Errorf("failed to record leadership posting: %w", err)
		}
	}
	return res, nil
}

// plan fills res with the overrides the current accruals and configuration call for.
func (d *Distributor) plan(uow *repository.Repositories, g *graph.Graph, cfg *models.CompensationSettings,
	p Period, beneficiaryID uint, res *Result) error {
	totals, err := uow.BonusWallet.TotalsBetween(p.Start(), p.End(), beneficiaryID)
	if err != nil {
		return fmt.Errorf("failed to aggregate accruals: %w", err)
	}
	for _, t := range totals {
		res.PeriodTotal = res.PeriodTotal.Add(t.Total)
	}
	if !res.PeriodTotal.IsPositive() {
		return nil
	}

	chain := g.AncestorChain(beneficiaryID, cfg.EffectiveLeadershipLevels())
	for i, candidate := range chain {
		level := i + 1
		q, err := d.Qualify(uow, g, cfg, candidate)
		if err != nil {
			return err
		}
		if !q.Qualified {
			res.StoppedAt = level
			res.StopReason = fmt.Sprintf("user %d not qualified (%d holders, volume %s)", candidate, q.Holders, q.Volume)
			break
		}

		pct := cfg.LeadershipPercentage(level)
		amount := models.Percent(res.PeriodTotal, pct)
		if !amount.IsPositive() {
			continue
		}
		res.Overrides = append(res.Overrides, Override{SponsorID: candidate, Level: level, Percentage: pct, Amount: amount})
	}
	return nil
}

// Qualify checks the candidate's direct downline: enough distinct active package holders
// and enough summed active package price.
func (d *Distributor) Qualify(uow *repository.Repositories, g *graph.Graph, cfg *models.CompensationSettings, candidate uint) (*Qualification, error) {
	direct := g.DirectDownline(candidate)
	packages, err := uow.UserPackage.ListActiveByUsers(direct)
	if err != nil {
		return nil, fmt.Errorf("failed to load downline packages of user %d: %w", candidate, err)
	}

	holders := map[uint]struct{}{}
	q := &Qualification{Volume: decimal.Zero}
	for _, up := range packages {
		holders[up.UserID] = struct{}{}
		q.Volume = q.Volume.Add(up.Price)
	}
	q.Holders = len(holders)
	q.Qualified = q.Holders >= cfg.MinDirectCount && q.Volume.GreaterThanOrEqual(cfg.DirectPackageQuota)
	return q, nil
}
