package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/cycle"
	"github.com/ManuelReschke/PayMatrix/internal/pkg/ledger"
	"github.com/shopspring/decimal"
)

// DayStart returns the start of the UTC day containing t.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AccrueDaily pays the daily accrual of each of the owner's due daily packages. Payouts
// are bounded by the owner's remaining lifetime capacity; a package that already accrued
// today is skipped.
func (e *Engine) AccrueDaily(ctx context.Context, uow *repository.Repositories, book *Book,
	cfg *models.CompensationSettings, ownerID uint, packageIDs []uint, now time.Time) (*Outcome, error) {
	out := &Outcome{}
	acct, err := book.Account(ownerID)
	if err != nil {
		return nil, err
	}
	since := DayStart(now)

	for _, id := range packageIDs {
		up, err := uow.UserPackage.GetByIDForUpdate(id)
		if err != nil {
			return nil, fmt.Errorf("package %d: %w", id, err)
		}
		if up.UserID != ownerID || !up.IsDaily() || !cycle.IsDue(up, now) {
			out.Skips = append(out.Skips, Skip{UserID: ownerID, UserPackageID: id, Reason: "not due"})
			continue
		}
		done, err := uow.BonusWallet.ExistsForPackageSince(up.ID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to check accruals of package %d: %w", up.ID, err)
		}
		if done {
			out.Skips = append(out.Skips, Skip{UserID: ownerID, UserPackageID: up.ID, Reason: "already accrued today"})
			continue
		}

		full := up.Package.DailyAmount()
		amount := decimal.Min(full, acct.Remaining())
		if !amount.IsPositive() {
			out.Skips = append(out.Skips, Skip{UserID: ownerID, UserPackageID: up.ID, Reason: "lifetime cap reached"})
			if _, err := book.deactivate(acct); err != nil {
				return nil, err
			}
			continue
		}

		payout, entry, err := e.accrue(ctx, uow, cfg, up, amount, now)
		if err != nil {
			return nil, err
		}
		book.record(ownerID, amount)
		payout.Full = full
		payout.Regime = models.RegimeCapped
		if payout.Deactivated, err = book.deactivate(acct); err != nil {
			return nil, err
		}
		out.Payouts = append(out.Payouts, *payout)
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// AccrueMonthly pays one monthly accrual of a due monthly package. Monthly accruals are flat.
func (e *Engine) AccrueMonthly(ctx context.Context, uow *repository.Repositories,
	cfg *models.CompensationSettings, userPackageID uint, now time.Time) (*Outcome, error) {
	up, err := uow.UserPackage.GetByIDForUpdate(userPackageID)
	if err != nil {
		return nil, fmt.Errorf("package %d: %w", userPackageID, err)
	}
	if up.IsDaily() || !cycle.IsDue(up, now) {
		return nil, fmt.Errorf("package %d not due: %w", up.ID, cycle.ErrNotEligible)
	}

	out := &Outcome{}
	amount := models.Percent(up.Price, cfg.MonthlyBonusPercentage)
	if !amount.IsPositive() {
		out.Skips = append(out.Skips, Skip{UserID: up.UserID, UserPackageID: up.ID, Reason: "monthly bonus percentage is zero"})
		return out, nil
	}

	payout, entry, err := e.accrue(ctx, uow, cfg, up, amount, now)
	if err != nil {
		return nil, err
	}
	payout.Full = amount
	payout.Regime = models.RegimeFlat
	out.Payouts = append(out.Payouts, *payout)
	out.Entries = append(out.Entries, entry)
	return out, nil
}

// accrue posts one bonus entry, records it against (package, cycle) and advances the cycle.
func (e *Engine) accrue(ctx context.Context, uow *repository.Repositories, cfg *models.CompensationSettings,
	up *models.UserPackage, amount decimal.Decimal, now time.Time) (*Payout, *models.EwalletTransaction, error) {
	entry, err := ledger.Post(ctx, uow, ledger.Posting{
		UserID:      up.UserID,
		Type:        models.TxTypeBonus,
		Amount:      amount,
		Description: fmt.Sprintf("%s bonus for package #%d cycle %d", up.Package.Mode, up.ID, up.CurrentCycle),
		ReferenceID: &up.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := uow.BonusWallet.Create(&models.BonusWallet{
		UserID:        up.UserID,
		UserPackageID: up.ID,
		Cycle:         up.CurrentCycle,
		Mode:          up.Package.Mode,
		Amount:        amount,
		TransactionID: entry.ID,
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to record accrual of package %d cycle %d: %w", up.ID, up.CurrentCycle, err)
	}
	if err := cycle.Advance(up, cfg.BonusMonths, now); err != nil {
		return nil, nil, err
	}
	if err := uow.UserPackage.Update(up); err != nil {
		return nil, nil, fmt.Errorf("failed to advance package %d: %w", up.ID, err)
	}
	return &Payout{
		UserID:        up.UserID,
		Type:          models.TxTypeBonus,
		UserPackageID: up.ID,
		Amount:        amount,
	}, entry, nil
}
