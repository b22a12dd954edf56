package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/ledger/service"
)

func TestRecordExpenseUpdatesBudgetAndDeleteReverts(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "1000.00")
	b := f.budget(t, alice, "100.00")

	tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("150.00"), Direction: domain.Expense, BudgetID: &b.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.False(t, tx.OccurredAt.IsZero())

	f.assertBalance(t, acc.ID, "850.00")
	f.assertBudget(t, b.ID, "150.00", domain.BudgetExceeded)

	deleted, err := f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	f.assertBalance(t, acc.ID, "1000.00")
	f.assertBudget(t, b.ID, "0.00", domain.BudgetActive)
}

func TestRecordThenDeleteRestoresBalance(t *testing.T) {
	tests := []struct {
		name      string
		direction domain.Direction
		amount    string
	}{
		{name: "income", direction: domain.Income, amount: "42.42"},
		{name: "expense", direction: domain.Expense, amount: "17.03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, service.Options{})
			acc := f.open(t, alice, "250.75")

			tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
				UserID: alice, AccountID: acc.ID, Amount: dec(tt.amount), Direction: tt.direction,
			})
			require.NoError(t, err)
			f.assertBalance(t, acc.ID, dec("250.75").Add(tt.direction.Signed(dec(tt.amount))).String())

			deleted, err := f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
			require.NoError(t, err)
			assert.True(t, deleted)
			f.assertBalance(t, acc.ID, "250.75")
		})
	}
}

func TestIncomeDoesNotCountTowardsBudget(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "0")
	b := f.budget(t, alice, "10")

	_, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("500"), Direction: domain.Income, BudgetID: &b.ID,
	})
	require.NoError(t, err)
	f.assertBalance(t, acc.ID, "500")
	f.assertBudget(t, b.ID, "0", domain.BudgetActive)
}

func TestRecordTransactionRejections(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "20")
	foreignAcc := f.open(t, bob, "20")
	foreignBudget := f.budget(t, bob, "10")
	missingBudget := int64(404)

	tests := []struct {
		name string
		req  service.RecordTransactionRequest
		kind domain.Kind
	}{
		{name: "zero amount", req: service.RecordTransactionRequest{UserID: alice, AccountID: acc.ID, Amount: dec("0"), Direction: domain.Income}, kind: domain.ErrInvalidArgument},
		{name: "bad direction", req: service.RecordTransactionRequest{UserID: alice, AccountID: acc.ID, Amount: dec("1"), Direction: "GIFT"}, kind: domain.ErrInvalidArgument},
		{name: "missing account", req: service.RecordTransactionRequest{UserID: alice, AccountID: 999, Amount: dec("1"), Direction: domain.Income}, kind: domain.ErrNotFound},
		{name: "foreign account", req: service.RecordTransactionRequest{UserID: alice, AccountID: foreignAcc.ID, Amount: dec("1"), Direction: domain.Income}, kind: domain.ErrForbidden},
		{name: "foreign budget", req: service.RecordTransactionRequest{UserID: alice, AccountID: acc.ID, Amount: dec("1"), Direction: domain.Expense, BudgetID: &foreignBudget.ID}, kind: domain.ErrForbidden},
		{name: "missing budget", req: service.RecordTransactionRequest{UserID: alice, AccountID: acc.ID, Amount: dec("1"), Direction: domain.Expense, BudgetID: &missingBudget}, kind: domain.ErrNotFound},
		{name: "overdraft", req: service.RecordTransactionRequest{UserID: alice, AccountID: acc.ID, Amount: dec("20.01"), Direction: domain.Expense}, kind: domain.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordTransaction(f.ctx, tt.req)
			assert.Equal(t, tt.kind, domain.KindOf(err), "err: %v", err)
			f.assertBalance(t, acc.ID, "20")
			f.assertBalance(t, foreignAcc.ID, "20")
		})
	}

	_, total, err := f.svc.ListTransactions(f.ctx, service.ListTransactionsRequest{UserID: alice})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBudgetBoundToAccount(t *testing.T) {
	f := newFixture(t, service.Options{})
	tracked := f.open(t, alice, "100")
	other := f.open(t, alice, "100")
	b, err := f.svc.CreateBudget(f.ctx, service.CreateBudgetRequest{UserID: alice, Name: "card", LimitAmount: dec("50"), AccountID: &tracked.ID})
	require.NoError(t, err)

	_, err = f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: other.ID, Amount: dec("5"), Direction: domain.Expense, BudgetID: &b.ID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	f.assertBalance(t, other.ID, "100")
}

func TestExpensePolicyAllowNegative(t *testing.T) {
	f := newFixture(t, service.Options{ExpensePolicy: domain.ExpenseAllowNegative})
	acc := f.open(t, alice, "10")

	_, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("25"), Direction: domain.Expense,
	})
	require.NoError(t, err)
	f.assertBalance(t, acc.ID, "-15")
}

func TestDeleteTransactionNotFoundIsFalse(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "10")

	deleted, err := f.svc.DeleteTransaction(f.ctx, alice, 12345)
	require.NoError(t, err)
	assert.False(t, deleted)

	tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("5"), Direction: domain.Expense,
	})
	require.NoError(t, err)

	deleted, err = f.svc.DeleteTransaction(f.ctx, bob, tx.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	f.assertBalance(t, acc.ID, "5")

	deleted, err = f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	f.assertBalance(t, acc.ID, "10")
}

func TestDeleteIncomeThatWasSpentIsRejectedUnderStrictPolicy(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "0")

	income, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("100"), Direction: domain.Income,
	})
	require.NoError(t, err)
	_, err = f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("80"), Direction: domain.Expense,
	})
	require.NoError(t, err)

	deleted, err := f.svc.DeleteTransaction(f.ctx, alice, income.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.False(t, deleted)
	f.assertBalance(t, acc.ID, "20")
}

func TestDeleteAfterBudgetCorrectionFloorsAtZero(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "100")
	b := f.budget(t, alice, "50")

	tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("30"), Direction: domain.Expense, BudgetID: &b.ID,
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateBudgetSpending(f.ctx, b.ID, dec("10"))
	require.NoError(t, err)

	_, err = f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
	require.NoError(t, err)
	f.assertBudget(t, b.ID, "0", domain.BudgetActive)
}

func TestUpdateTransactionAppliesDelta(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "1000")
	food := f.budget(t, alice, "100")
	fun := f.budget(t, alice, "40")

	tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("60"), Direction: domain.Expense, BudgetID: &food.ID,
	})
	require.NoError(t, err)

	// 同一预算内改金额
	updated, err := f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{
		UserID: alice, TransactionID: tx.ID, Amount: dec("120"), Direction: domain.Expense, BudgetID: &food.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	f.assertBalance(t, acc.ID, "880")
	f.assertBudget(t, food.ID, "120", domain.BudgetExceeded)

	// 换到另一个预算
	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{
		UserID: alice, TransactionID: tx.ID, Amount: dec("45"), Direction: domain.Expense, BudgetID: &fun.ID,
	})
	require.NoError(t, err)
	f.assertBalance(t, acc.ID, "955")
	f.assertBudget(t, food.ID, "0", domain.BudgetActive)
	f.assertBudget(t, fun.ID, "45", domain.BudgetExceeded)

	// 改成收入并解除预算
	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{
		UserID: alice, TransactionID: tx.ID, Amount: dec("45"), Direction: domain.Income,
	})
	require.NoError(t, err)
	f.assertBalance(t, acc.ID, "1045")
	f.assertBudget(t, fun.ID, "0", domain.BudgetActive)

	// 删除后回到初始余额
	deleted, err := f.svc.DeleteTransaction(f.ctx, alice, tx.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	f.assertBalance(t, acc.ID, "1000")
}

func TestUpdateTransactionRejections(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "50")
	foreignBudget := f.budget(t, bob, "10")

	tx, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
		UserID: alice, AccountID: acc.ID, Amount: dec("10"), Direction: domain.Expense,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{UserID: bob, TransactionID: tx.ID, Amount: dec("1"), Direction: domain.Expense})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{UserID: alice, TransactionID: 999, Amount: dec("1"), Direction: domain.Expense})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{UserID: alice, TransactionID: tx.ID, Amount: dec("51"), Direction: domain.Expense})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{UserID: alice, TransactionID: tx.ID, Amount: dec("1"), Direction: domain.Expense, BudgetID: &foreignBudget.ID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.UpdateTransaction(f.ctx, service.UpdateTransactionRequest{UserID: alice, TransactionID: tx.ID, Amount: dec("-1"), Direction: domain.Expense})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	f.assertBalance(t, acc.ID, "40")
	stored, err := f.uow.Stores().Transactions.FindByID(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, dec("10").Equal(stored.Amount))
	assert.Equal(t, int64(1), stored.Version)
}

func TestRecomputeMatchesRunningTotalForFractionalAmounts(t *testing.T) {
	f := newFixture(t, service.Options{})
	acc := f.open(t, alice, "12345678901234.5678")
	b := f.budget(t, alice, "1")

	for _, amount := range []string{"0.1", "0.2"} {
		_, err := f.svc.RecordTransaction(f.ctx, service.RecordTransactionRequest{
			UserID: alice, AccountID: acc.ID, Amount: dec(amount), Direction: domain.Expense, BudgetID: &b.ID,
		})
		require.NoError(t, err)
	}

	running, err := f.svc.GetBudget(f.ctx, alice, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.3", running.SpentAmount.String())

	recomputed, err := f.svc.RecomputeBudget(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.3", recomputed.SpentAmount.String())
	assert.Equal(t, running.Status, recomputed.Status)

	assert.Equal(t, "12345678901234.2678", f.balance(t, acc.ID).String())
}
