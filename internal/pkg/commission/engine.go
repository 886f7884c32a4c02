// Package commission computes referral commissions and maturity accruals and posts
// them to the ledger inside the caller's unit of work.
package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cycle"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/graph"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/shopspring/decimal"
)

// ErrBuyerSuspended is returned when a suspended user tries to buy a package.
var ErrBuyerSuspended = errors.New("buyer is suspended")

// FirstReferralLevel is the commission level of the buyer's immediate sponsor.
const FirstReferralLevel = 2

// Payout is one amount posted by the engine.
type Payout struct {
	UserID        uint            `json:"user_id"`
	Type          string          `json:"type"`
	Level         int             `json:"level,omitempty"`
	UserPackageID uint            `json:"user_package_id,omitempty"`
	Regime        string          `json:"regime,omitempty"`
	Full          decimal.Decimal `json:"full"`
	Amount        decimal.Decimal `json:"amount"`
	Deactivated   bool            `json:"deactivated,omitempty"`
}

// Skip is a payout the engine decided not to post.
type Skip struct {
	UserID        uint   `json:"user_id"`
	Level         int    `json:"level,omitempty"`
	UserPackageID uint   `json:"user_package_id,omitempty"`
	Reason        string `json:"reason"`
}

// Outcome is everything one engine call did inside its unit of work.
type Outcome struct {
	UserPackage *models.UserPackage          `json:"user_package,omitempty"`
	Payouts     []Payout                     `json:"payouts"`
	Skips       []Skip                       `json:"skips,omitempty"`
	Entries     []*models.EwalletTransaction `json:"-"`
}

// Total sums the posted payouts.
func (o *Outcome) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payouts {
		total = total.Add(p.Amount)
	}
	return total
}

// Purchase is one package purchase to distribute referral commissions for.
type Purchase struct {
	BuyerID       uint
	UserPackageID uint
	Price         decimal.Decimal
}

// Engine applies the payout policy. It holds no state between units of work.
type Engine struct{}

// NewEngine creates a commission engine.
func NewEngine() *Engine {
	return &Engine{}
}

// BuyPackage debits the buyer, creates the user package and distributes the referral
// commissions of the purchase. A package priced at zero is granted without a purchase entry.
func (e *Engine) BuyPackage(ctx context.Context, uow *repository.Repositories, g *graph.Graph,
	cfg *models.CompensationSettings, userID, packageID uint) (*Outcome, error) {
	buyer, err := uow.User.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("buyer %d: %w", userID, err)
	}
	if buyer.Status == models.UserStatusSuspended {
		return nil, fmt.Errorf("user %d: %w", userID, ErrBuyerSuspended)
	}
	pkg, err := uow.Package.GetByID(packageID)
	if err != nil {
		return nil, fmt.Errorf("package %d: %w", packageID, err)
	}

	up := cycle.New(userID, pkg, cfg.BonusMonths)
	if err := uow.UserPackage.Create(up); err != nil {
		return nil, fmt.Errorf("failed to create user package: %w", err)
	}

	var entries []*models.EwalletTransaction
	if !up.Price.Round(models.MoneyScale).IsZero() {
		entry, err := ledger.Post(ctx, uow, ledger.Posting{
			UserID:      userID,
			Type:        models.TxTypePurchase,
			Amount:      up.Price.Neg(),
			Description: fmt.Sprintf("Purchase of package %s", pkg.Name),
			ReferenceID: &up.ID,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if pkg.IsDaily() && buyer.Status == models.UserStatusInactive {
		if err := uow.User.UpdateStatus(userID, models.UserStatusActive); err != nil {
			return nil, fmt.Errorf("failed to reactivate user %d: %w", userID, err)
		}
	}

	out, err := e.DistributePurchase(ctx, uow, NewBook(uow), g, cfg, Purchase{
		BuyerID:       userID,
		UserPackageID: up.ID,
		Price:         up.Price,
	})
	if err != nil {
		return nil, err
	}
	out.UserPackage = up
	out.Entries = append(entries, out.Entries...)
	return out, nil
}

// DistributePurchase pays referral commissions up the buyer's sponsor chain.
// Levels start at FirstReferralLevel for the immediate sponsor; a missing ancestor ends the walk.
func (e *Engine) DistributePurchase(ctx context.Context, uow *repository.Repositories, book *Book,
	g *graph.Graph, cfg *models.CompensationSettings, p Purchase) (*Outcome, error) {
	out := &Outcome{}
	chain := g.AncestorChain(p.BuyerID, cfg.ReferralMaxLevel-FirstReferralLevel+1)

	for i, sponsorID := range chain {
		level := i + FirstReferralLevel
		pct := cfg.ReferralPercentage(level)
		if !pct.IsPositive() {
			continue
		}
		full := models.Percent(p.Price, pct)
		if !full.IsPositive() {
			continue
		}

		acct, err := book.Account(sponsorID)
		if err != nil {
			return nil, err
		}
		regime := acct.Regime()
		amount := full
		if acct.Capped() {
			amount = decimal.Min(full, acct.Remaining())
		}
		if !amount.IsPositive() {
			out.Skips = append(out.Skips, Skip{UserID: sponsorID, Level: level, UserPackageID: p.UserPackageID, Reason: "lifetime cap reached"})
			continue
		}

		buyerID := p.BuyerID
		entry, err := ledger.Post(ctx, uow, ledger.Posting{
			UserID:      sponsorID,
			Type:        models.TxTypeReferral,
			Amount:      amount,
			Description: fmt.Sprintf("Level %d referral bonus from user #%d", level, p.BuyerID),
			ReferenceID: &buyerID,
		})
		if err != nil {
			return nil, err
		}
		if err := uow.ReferralBonus.Create(&models.ReferralBonus{
			SponsorID:     sponsorID,
			BeneficiaryID: p.BuyerID,
			UserPackageID: p.UserPackageID,
			Level:         level,
			Percentage:    pct,
			Regime:        regime,
			Amount:        amount,
			TransactionID: entry.ID,
		}); err != nil {
			return nil, fmt.Errorf("failed to record referral bonus: %w", err)
		}
		book.record(sponsorID, amount)

		payout := Payout{
			UserID:        sponsorID,
			Type:          models.TxTypeReferral,
			Level:         level,
			UserPackageID: p.UserPackageID,
			Regime:        regime,
			Full:          full,
			Amount:        amount,
		}
		if acct.Capped() {
			if payout.Deactivated, err = book.deactivate(acct); err != nil {
				return nil, err
			}
		}
		out.Payouts = append(out.Payouts, payout)
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}
