package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// RecordTransactionRequest 记一笔收入或支出
type RecordTransactionRequest struct {
	UserID      int64
	AccountID   int64
	Amount      decimal.Decimal
	Direction   domain.Direction
	CategoryID  *int64
	BudgetID    *int64
	Description string
	OccurredAt  time.Time
}

// UpdateTransactionRequest 修改已有流水，余额和预算按差额调整
type UpdateTransactionRequest struct {
	UserID        int64
	TransactionID int64
	Amount        decimal.Decimal
	Direction     domain.Direction
	CategoryID    *int64
	BudgetID      *int64
	Description   string
	OccurredAt    time.Time
}

// ListTransactionsRequest 分页查询
type ListTransactionsRequest struct {
	UserID    int64
	AccountID *int64
	Page      int
	PageSize  int
}

func validateEntry(amount decimal.Decimal, direction domain.Direction) error {
	if !amount.IsPositive() {
		return domain.NewError(domain.ErrInvalidArgument, "amount", "amount must be greater than zero")
	}
	if !direction.IsValid() {
		return domain.NewError(domain.ErrInvalidArgument, "direction", "direction must be INCOME or EXPENSE")
	}
	return nil
}

// checkBudgetLink 预算必须属于用户；若预算绑定了账户，流水必须记在该账户上
func checkBudgetLink(b *domain.Budget, userID, accountID int64) error {
	if err := checkOwner(b.UserID, userID, "budget"); err != nil {
		return err
	}
	if b.AccountID != nil && *b.AccountID != accountID {
		return domain.NewError(domain.ErrInvalidArgument, "budget_id", "budget tracks a different account")
	}
	return nil
}

// RecordTransaction 写入流水、调整账户余额、累加预算，三者在同一事务内
func (s *LedgerService) RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*domain.Transaction, error) {
	if err := validateEntry(req.Amount, req.Direction); err != nil {
		return nil, err
	}
	if req.OccurredAt.IsZero() {
		req.OccurredAt = s.now()
	}

	var record *domain.Transaction
	err := s.execute(ctx, "record_transaction", func(ctx context.Context, st domain.Stores) error {
		record = nil

		acc, err := s.lockOwnedAccount(ctx, st, req.UserID, req.AccountID, true)
		if err != nil {
			return err
		}

		var budget *domain.Budget
		if req.BudgetID != nil {
			if budget, err = st.Budgets.FindForUpdate(ctx, *req.BudgetID); err != nil {
				return err
			}
			if err := checkBudgetLink(budget, req.UserID, acc.ID); err != nil {
				return err
			}
		}

		balance := acc.Balance.Add(req.Direction.Signed(req.Amount))
		if req.Direction == domain.Expense {
			if err := s.checkDebit(balance); err != nil {
				return err
			}
		}
		if err := st.Accounts.UpdateBalance(ctx, acc.ID, balance, acc.Version); err != nil {
			return err
		}

		record = &domain.Transaction{
			UserID:      req.UserID,
			AccountID:   acc.ID,
			Amount:      req.Amount,
			Direction:   req.Direction,
			CategoryID:  req.CategoryID,
			BudgetID:    req.BudgetID,
			Description: req.Description,
			OccurredAt:  req.OccurredAt,
			Version:     1,
		}
		if err := st.Transactions.Create(ctx, record); err != nil {
			return err
		}

		if budget != nil {
			return applyBudgetDelta(ctx, st, budget, budgetContribution(record))
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("transaction rejected", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	s.invalidate(ctx, record.AccountID)
	s.logger.Info("transaction recorded",
		zap.Int64("transaction_id", record.ID),
		zap.String("direction", string(record.Direction)),
		zap.String("amount", record.Amount.String()),
	)
	return record, nil
}

// DeleteTransaction 删除流水并精确冲回余额和预算。
// 流水不存在或不属于该用户时返回 false, nil
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, transactionID int64) (bool, error) {
	var accountID int64
	deleted := false

	err := s.execute(ctx, "delete_transaction", func(ctx context.Context, st domain.Stores) error {
		deleted = false

		t, err := st.Transactions.FindForUpdate(ctx, transactionID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return nil
		}

		acc, err := st.Accounts.FindForUpdate(ctx, t.AccountID)
		if err != nil {
			return err
		}

		// 冲回：支出删除后加回，收入删除后扣减
		balance := acc.Balance.Sub(t.Direction.Signed(t.Amount))
		if t.Direction == domain.Income {
			if err := s.checkDebit(balance); err != nil {
				return err
			}
		}
		if err := st.Accounts.UpdateBalance(ctx, acc.ID, balance, acc.Version); err != nil {
			return err
		}

		if contribution := budgetContribution(t); !contribution.IsZero() {
			b, err := st.Budgets.FindForUpdate(ctx, *t.BudgetID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				// 预算已被删除，无需回写
			case err != nil:
				return err
			default:
				if err := applyBudgetDelta(ctx, st, b, contribution.Neg()); err != nil {
					return err
				}
			}
		}

		if err := st.Transactions.Delete(ctx, t.ID, t.Version); err != nil {
			return err
		}
		accountID, deleted = acc.ID, true
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.invalidate(ctx, accountID)
		s.logger.Info("transaction deleted", zap.Int64("transaction_id", transactionID))
	}
	return deleted, nil
}

// UpdateTransaction 原子地修改金额/方向/预算：
// 账户只应用新旧两次影响的差额，预算贡献从旧预算移到新预算
func (s *LedgerService) UpdateTransaction(ctx context.Context, req UpdateTransactionRequest) (*domain.Transaction, error) {
	if err := validateEntry(req.Amount, req.Direction); err != nil {
		return nil, err
	}

	var record *domain.Transaction
	err := s.execute(ctx, "update_transaction", func(ctx context.Context, st domain.Stores) error {
		record = nil

		t, err := st.Transactions.FindForUpdate(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if err := checkOwner(t.UserID, req.UserID, "transaction"); err != nil {
			return err
		}

		acc, err := st.Accounts.FindForUpdate(ctx, t.AccountID)
		if err != nil {
			return err
		}

		updated := *t
		updated.Amount = req.Amount
		updated.Direction = req.Direction
		updated.CategoryID = req.CategoryID
		updated.BudgetID = req.BudgetID
		updated.Description = req.Description
		if !req.OccurredAt.IsZero() {
			updated.OccurredAt = req.OccurredAt
		}

		var ids []int64
		if t.BudgetID != nil {
			ids = append(ids, *t.BudgetID)
		}
		if updated.BudgetID != nil {
			ids = append(ids, *updated.BudgetID)
		}
		budgets, err := s.lockLinkedBudgets(ctx, st, t.BudgetID, ids)
		if err != nil {
			return err
		}
		if updated.BudgetID != nil {
			b, ok := budgets[*updated.BudgetID]
			if !ok {
				return domain.NewError(domain.ErrNotFound, "budget_id", "budget not found")
			}
			if err := checkBudgetLink(b, req.UserID, acc.ID); err != nil {
				return err
			}
		}

		delta := updated.Direction.Signed(updated.Amount).Sub(t.Direction.Signed(t.Amount))
		if !delta.IsZero() {
			balance := acc.Balance.Add(delta)
			if delta.IsNegative() {
				if err := s.checkDebit(balance); err != nil {
					return err
				}
			}
			if err := st.Accounts.UpdateBalance(ctx, acc.ID, balance, acc.Version); err != nil {
				return err
			}
		}

		oldC, newC := budgetContribution(t), budgetContribution(&updated)
		if sameBudget(t.BudgetID, updated.BudgetID) {
			if t.BudgetID != nil {
				if err := applyBudgetDelta(ctx, st, budgets[*t.BudgetID], newC.Sub(oldC)); err != nil {
					return err
				}
			}
		} else {
			if t.BudgetID != nil {
				if b, ok := budgets[*t.BudgetID]; ok {
					if err := applyBudgetDelta(ctx, st, b, oldC.Neg()); err != nil {
						return err
					}
				}
			}
			if updated.BudgetID != nil {
				if err := applyBudgetDelta(ctx, st, budgets[*updated.BudgetID], newC); err != nil {
					return err
				}
			}
		}

		if err := st.Transactions.Update(ctx, &updated, t.Version); err != nil {
			return err
		}
		record = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, record.AccountID)
	s.logger.Info("transaction updated", zap.Int64("transaction_id", record.ID))
	return record, nil
}

// lockLinkedBudgets 锁定新旧预算；旧预算已被删除时忽略
func (s *LedgerService) lockLinkedBudgets(ctx context.Context, st domain.Stores, oldID *int64, ids []int64) (map[int64]*domain.Budget, error) {
	budgets, err := lockBudgets(ctx, st, ids...)
	if err == nil || !errors.Is(err, domain.ErrNotFound) || oldID == nil {
		return budgets, err
	}

	rest := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != *oldID {
			rest = append(rest, id)
		}
	}
	return lockBudgets(ctx, st, rest...)
}

func sameBudget(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ListTransactions 分页列出用户的流水
func (s *LedgerService) ListTransactions(ctx context.Context, req ListTransactionsRequest) ([]domain.Transaction, int64, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	return s.uow.Stores().Transactions.List(ctx, domain.TransactionFilter{
		UserID:    req.UserID,
		AccountID: req.AccountID,
		Limit:     size,
		Offset:    (page - 1) * size,
	})
}
