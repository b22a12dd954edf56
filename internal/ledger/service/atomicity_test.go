package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/ledger/service"
)

var errDiskFull = errors.New("disk full")

type failingTransfers struct {
	domain.TransferRepository
}

func (failingTransfers) Create(context.Context, *domain.InternalTransfer) error {
	return domain.Storage(errDiskFull, "create transfer")
}

type failingBudgets struct {
	domain.BudgetRepository
}

func (failingBudgets) UpdateSpent(context.Context, int64, decimal.Decimal, domain.BudgetStatus, int64) error {
	return domain.Storage(errDiskFull, "update budget")
}

// brokenUnitOfWork 把 stores 换成 wrap 之后的版本，最后一步写入失败
type brokenUnitOfWork struct {
	domain.UnitOfWork
	wrap func(s domain.Stores) domain.Stores
}

func (u brokenUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return u.UnitOfWork.Do(ctx, func(ctx context.Context, s domain.Stores) error {
		return fn(ctx, u.wrap(s))
	})
}

func TestTransferRollsBackWhenRecordWriteFails(t *testing.T) {
	setup := newFixture(t, service.Options{})
	a := setup.open(t, alice, "100")
	b := setup.open(t, alice, "0")

	broken := brokenUnitOfWork{UnitOfWork: setup.uow, wrap: func(s domain.Stores) domain.Stores {
		s.Transfers = failingTransfers{s.Transfers}
		return s
	}}
	svc := service.NewLedgerService(broken, zap.NewNop(), service.Options{}, nil)

	_, err := svc.Transfer(setup.ctx, service.TransferRequest{
		UserID: alice, SourceAccountID: a.ID, DestinationAccountID: b.ID, Amount: dec("40"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.ErrStorageFailure, domain.KindOf(err))
	assert.ErrorIs(t, err, errDiskFull)

	// 两个余额都已写过，失败后必须整体回滚
	setup.assertBalance(t, a.ID, "100")
	setup.assertBalance(t, b.ID, "0")
}

func TestRecordTransactionRollsBackWhenBudgetWriteFails(t *testing.T) {
	setup := newFixture(t, service.Options{})
	acc := setup.open(t, alice, "1000")
	budget := setup.budget(t, alice, "100")

	broken := brokenUnitOfWork{UnitOfWork: setup.uow, wrap: func(s domain.Stores) domain.Stores {
		s.Budgets = failingBudgets{s.Budgets}
		return s
	}}
	svc := service.NewLedgerService(broken, zap.NewNop(), service.Options{}, nil)

	_, err := svc.RecordTransaction(setup.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("150"), Direction: domain.Expense, BudgetID: &budget.ID,
	})
	assert.Equal(t, domain.ErrStorageFailure, domain.KindOf(err))

	setup.assertBalance(t, acc.ID, "1000")
	setup.assertBudget(t, budget.ID, "0", domain.BudgetActive)

	_, total, err := setup.svc.ListTransactions(setup.ctx, service.ListTransactionsRequest{UserID: alice})
	require.NoError(t, err)
	assert.Zero(t, total)
}
