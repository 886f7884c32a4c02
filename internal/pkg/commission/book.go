package commission

import (
	"fmt"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/shopspring/decimal"
)

// Account is the lifetime-cap view of one earner inside a unit of work.
type Account struct {
	UserID uint
	Status string
	// Lifetime is daily accrual payouts plus completed referral entries.
	Lifetime decimal.Decimal
	// Cap is the sum of target values over all daily packages the user ever bought.
	Cap         decimal.Decimal
	ActiveDaily bool
}

// Capped reports whether payouts to this account are bounded by Cap.
func (a *Account) Capped() bool {
	return a.ActiveDaily
}

// Remaining is the capacity left under the cap, never negative.
func (a *Account) Remaining() decimal.Decimal {
	r := a.Cap.Sub(a.Lifetime)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Regime names the payout regime of the account.
func (a *Account) Regime() string {
	if a.Capped() {
		return models.RegimeCapped
	}
	return models.RegimeFlat
}

// Book is the lifetime read model of one unit of work. Accounts are loaded once
// and kept current in memory as payouts are posted.
type Book struct {
	uow      *repository.Repositories
	accounts map[uint]*Account
}

// NewBook creates an empty read model bound to uow.
func NewBook(uow *repository.Repositories) *Book {
	return &Book{uow: uow, accounts: map[uint]*Account{}}
}

// Account returns the lifetime view of userID, loading it on first use.
func (b *Book) Account(userID uint) (*Account, error) {
	if a, ok := b.accounts[userID]; ok {
		return a, nil
	}

	user, err := b.uow.User.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	accrued, err := b.uow.BonusWallet.SumByUserAndMode(userID, models.PackageModeDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to sum accruals of user %d: %w", userID, err)
	}
	referrals, err := b.uow.Transaction.SumCompletedByUserAndType(userID, models.TxTypeReferral)
	if err != nil {
		return nil, fmt.Errorf("failed to sum referrals of user %d: %w", userID, err)
	}
	packages, err := b.uow.UserPackage.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages of user %d: %w", userID, err)
	}

	a := &Account{
		UserID:   userID,
		Status:   user.Status,
		Lifetime: accrued.Add(referrals),
		Cap:      decimal.Zero,
	}
	for _, up := range packages {
		if !up.IsDaily() {
			continue
		}
		a.Cap = a.Cap.Add(up.Package.TargetValue)
		if up.IsActive() {
			a.ActiveDaily = true
		}
	}
	b.accounts[userID] = a
	return a, nil
}

func (b *Book) record(userID uint, amount decimal.Decimal) {
	if a, ok := b.accounts[userID]; ok {
		a.Lifetime = a.Lifetime.Add(amount)
	}
}

// deactivate marks an active account inactive once its capacity is consumed.
func (b *Book) deactivate(a *Account) (bool, error) {
	if a.Status != models.UserStatusActive || a.Remaining().IsPositive() {
		return false, nil
	}
	if err := b.uow.User.UpdateStatus(a.UserID, models.UserStatusInactive); err != nil {
		return false, fmt.Errorf("failed to deactivate user %d: %w", a.UserID, err)
	}
	a.Status = models.UserStatusInactive
	return true, nil
}
