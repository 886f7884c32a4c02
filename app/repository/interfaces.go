package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository when the requested row does not exist.
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	UpdateStatus(id uint, status string) error
	ListSponsorLinks() ([]models.SponsorLink, error)
}

// PackageRepository reads the package catalog
type PackageRepository interface {
	Create(pkg *models.Package) error
	GetByID(id uint) (*models.Package, error)
}

// UserPackageRepository defines the operations on purchased packages.
// Every returned UserPackage has its catalog Package loaded.
type UserPackageRepository interface {
	Create(up *models.UserPackage) error
	GetByID(id uint) (*models.UserPackage, error)
	GetByIDForUpdate(id uint) (*models.UserPackage, error)
	Update(up *models.UserPackage) error
	ListByUser(userID uint) ([]models.UserPackage, error)
	// ListActiveDaily returns active daily packages ordered by user and id. userID 0 means all users.
	ListActiveDaily(userID uint) ([]models.UserPackage, error)
	// ListDueMonthly returns active monthly packages whose next bonus date is null or not after now.
	ListDueMonthly(now time.Time, userID uint) ([]models.UserPackage, error)
	ListActiveByUsers(userIDs []uint) ([]models.UserPackage, error)
}

// EwalletRepository defines the balance row operations
type EwalletRepository interface {
	Create(wallet *models.Ewallet) error
	GetByUserID(userID uint) (*models.Ewallet, error)
	// GetByUserIDForUpdate reads the wallet with a row lock held until the unit of work ends.
	GetByUserIDForUpdate(userID uint) (*models.Ewallet, error)
	UpdateBalance(id uint, balance decimal.Decimal) error
}

// EwalletTransactionRepository defines the append-only ledger entry operations
type EwalletTransactionRepository interface {
	Create(entry *models.EwalletTransaction) error
	ListByUser(userID uint) ([]models.EwalletTransaction, error)
	SumByUser(userID uint) (decimal.Decimal, error)
	SumWithdrawableByUser(userID uint) (decimal.Decimal, error)
	SumCompletedByUserAndType(userID uint, txType string) (decimal.Decimal, error)
}

// BeneficiaryTotal is the accrual total of one user within a period.
type BeneficiaryTotal struct {
	UserID uint
	Total  decimal.Decimal
}

// BonusWalletRepository defines the accrual posting operations
type BonusWalletRepository interface {
	Create(entry *models.BonusWallet) error
	SumByUserAndMode(userID uint, mode string) (decimal.Decimal, error)
	ExistsForPackageSince(userPackageID uint, since time.Time) (bool, error)
	// TotalsBetween sums accruals per user with created_at in [from, to). userID 0 means all users.
	TotalsBetween(from, to time.Time, userID uint) ([]BeneficiaryTotal, error)
}

// ReferralBonusRepository defines the purchase commission operations
type ReferralBonusRepository interface {
	Create(bonus *models.ReferralBonus) error
	ListByUserPackage(userPackageID uint) ([]models.ReferralBonus, error)
}

// LeadershipRepository defines the leadership override posting operations
type LeadershipRepository interface {
	Create(entry *models.LeadershipPassive) error
	// ListByPeriod returns the postings of a month cycle. beneficiaryID 0 means all beneficiaries.
	ListByPeriod(monthCycle string, beneficiaryID uint) ([]models.LeadershipPassive, error)
	Delete(id uint) error
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	GetAll() ([]models.Setting, error)
	GetCompensation() (*models.CompensationSettings, error)
	SetValue(key, value string) error
}

// BatchRunRepository stores batch audit rows
type BatchRunRepository interface {
	Create(run *models.BatchRun) error
	GetByRunID(runID string) (*models.BatchRun, error)
	ListRecent(limit int) ([]models.BatchRun, error)
}

// Repositories struct holds all repository instances. A Repositories value handed to a
// Transaction callback is bound to that transaction and is the unit of work.
type Repositories struct {
	User          UserRepository
	Package       PackageRepository
	UserPackage   UserPackageRepository
	Ewallet       EwalletRepository
	Transaction   EwalletTransactionRepository
	BonusWallet   BonusWalletRepository
	ReferralBonus ReferralBonusRepository
	Leadership    LeadershipRepository
	Setting       SettingRepository
	BatchRun      BatchRunRepository
}

// Transactor opens units of work. The callback's Repositories are bound to one transaction
// which commits when the callback returns nil and rolls back otherwise.
type Transactor interface {
	Transaction(ctx context.Context, fn func(uow *Repositories) error) error
	GetRepositories() *Repositories
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Package:       NewPackageRepository(db),
		UserPackage:   NewUserPackageRepository(db),
		Ewallet:       NewEwalletRepository(db),
		Transaction:   NewEwalletTransactionRepository(db),
		BonusWallet:   NewBonusWalletRepository(db),
		ReferralBonus: NewReferralBonusRepository(db),
		Leadership:    NewLeadershipRepository(db),
		Setting:       NewSettingRepository(db),
		BatchRun:      NewBatchRunRepository(db),
	}
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
