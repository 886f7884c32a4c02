package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/ManuelReschke/PayMatrix/app/repository"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when a debit would drive the balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrZeroAmount is returned for postings that round to zero.
	ErrZeroAmount = errors.New("amount must not be zero")
)

// Posting is one signed balance movement.
type Posting struct {
	UserID      uint
	Type        string
	Amount      decimal.Decimal
	Description string
	ReferenceID *uint
}

// Summary is the balance view of one account.
type Summary struct {
	UserID              uint            `json:"user_id"`
	Balance             decimal.Decimal `json:"balance"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance"`
	LedgerTotal         decimal.Decimal `json:"ledger_total"`
	Consistent          bool            `json:"consistent"`
}

var completedTypes = map[string]struct{}{
	models.TxTypeReferral:         {},
	models.TxTypeBonus:            {},
	models.TxTypeRetain:           {},
	models.TxTypeTransfer:         {},
	models.TxTypeTransferCharge:   {},
	models.TxTypeWithdrawalCharge: {},
	models.TxTypePurchase:         {},
	models.TxTypeRefund:           {},
	models.TxTypeLeadership:       {},
}

var nonWithdrawableTypes = map[string]struct{}{
	models.TxTypeTransfer: {},
	models.TxTypePurchase: {},
	models.TxTypeDeposit:  {},
}

// Classify returns the fixed status and withdrawability of an entry type.
func Classify(txType string) (status string, withdrawable bool) {
	status = models.TxStatusPending
	if _, ok := completedTypes[txType]; ok {
		status = models.TxStatusCompleted
	}
	_, locked := nonWithdrawableTypes[txType]
	return status, !locked
}

// Post applies p to the account balance and appends one ledger entry through uow.
// It never commits or rolls back; the owner of uow decides.
func Post(ctx context.Context, uow *repository.Repositories, p Posting) (*models.EwalletTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.UserID == 0 {
		return nil, errors.New("ledger: user id is required")
	}
	amount := p.Amount.Round(models.MoneyScale)
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}

	wallet, err := uow.Ewallet.GetByUserIDForUpdate(p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		if amount.IsNegative() {
			return nil, fmt.Errorf("user %d: %w", p.UserID, ErrInsufficientFunds)
		}
		wallet = &models.Ewallet{UserID: p.UserID, Balance: decimal.Zero}
		if err := uow.Ewallet.Create(wallet); err != nil {
			return nil, fmt.Errorf("failed to open wallet of user %d: %w", p.UserID, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock wallet of user %d: %w", p.UserID, err)
	}

	balance := wallet.Balance.Add(amount)
	if balance.IsNegative() {
		return nil, fmt.Errorf("user %d balance %s, debit %s: %w", p.UserID, wallet.Balance, amount.Neg(), ErrInsufficientFunds)
	}

	status, withdrawable := Classify(p.Type)
	entry := &models.EwalletTransaction{
		UserID:         p.UserID,
		Type:           p.Type,
		Amount:         amount,
		Description:    p.Description,
		Status:         status,
		IsWithdrawable: withdrawable,
		ReferenceID:    p.ReferenceID,
	}
	if err := uow.Transaction.Create(entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := uow.Ewallet.UpdateBalance(wallet.ID, balance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return entry, nil
}

// Balance returns the current balance, zero for users without a wallet.
func Balance(ctx context.Context, uow *repository.Repositories, userID uint) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	wallet, err := uow.Ewallet.GetByUserID(userID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}

// WithdrawableBalance returns the sum of all withdrawable entries.
func WithdrawableBalance(ctx context.Context, uow *repository.Repositories, userID uint) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	return uow.Transaction.SumWithdrawableByUser(userID)
}

// Reconcile compares the stored balance with the sum of the user's entries.
func Reconcile(ctx context.Context, uow *repository.Repositories, userID uint) (*Summary, error) {
	balance, err := Balance(ctx, uow, userID)
	if err != nil {
		return nil, err
	}
	withdrawable, err := WithdrawableBalance(ctx, uow, userID)
	if err != nil {
		return nil, err
	}
	total, err := uow.Transaction.SumByUser(userID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		UserID:              userID,
		Balance:             balance,
		WithdrawableBalance: withdrawable,
		LedgerTotal:         total,
		Consistent:          balance.Equal(total),
	}, nil
}

// IsValidation reports whether err means the unit was refused rather than broken.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrZeroAmount)
}
