package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ManuelReschke/PayMatrix/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return db, mock
}

func TestEwalletRepository_GetByUserIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEwalletRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `ewallet` WHERE user_id = \\?.*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}).AddRow(3, 7, "42.50"))

	wallet, err := repo.GetByUserIDForUpdate(7)
	require.NoError(t, err)
	assert.Equal(t, uint(3), wallet.ID)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("42.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEwalletRepository_MissingRowMapsToErrNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEwalletRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `ewallet` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "balance"}))

	_, err := repo.GetByUserID(9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEwalletTransactionRepository_SumWithdrawable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEwalletTransactionRepository(db)

	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM `ewallet_transactions` WHERE user_id = \\? AND is_withdrawable = \\?").
		WithArgs(7, true).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("12.50"))

	total, err := repo.SumWithdrawableByUser(7)
	require.NoError(t, err)
	assert.Equal(t, "12.5", total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `users` SET `status`=\\?.*WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(4, models.UserStatusInactive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBonusWalletRepository_ExistsForPackageSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBonusWalletRepository(db)
	since := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `bonus_wallet` WHERE user_package_id = \\? AND created_at >= \\?").
		WithArgs(11, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForPackageSince(11, since)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFactory_TransactionCommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	factory := NewFactory(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `ewallet_transactions`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	entry := &models.EwalletTransaction{
		UserID: 7,
		Type:   models.TxTypeBonus,
		Amount: decimal.NewFromInt(10),
		Status: models.TxStatusCompleted,
	}
	err := factory.Transaction(context.Background(), func(uow *Repositories) error {
		return uow.Transaction.Create(entry)
	})

	require.NoError(t, err)
	assert.Equal(t, uint(5), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFactory_TransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	factory := NewFactory(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := factory.Transaction(context.Background(), func(uow *Repositories) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
