package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// CreateBudgetRequest 新建预算
type CreateBudgetRequest struct {
	UserID      int64
	AccountID   *int64
	CategoryID  *int64
	Name        string
	LimitAmount decimal.Decimal
}

// CreateBudget 新预算初始为 ACTIVE，已花费为 0
func (s *LedgerService) CreateBudget(ctx context.Context, req CreateBudgetRequest) (*domain.Budget, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, domain.NewError(domain.ErrInvalidArgument, "name", "name is required")
	}
	if !req.LimitAmount.IsPositive() {
		return nil, domain.NewError(domain.ErrInvalidArgument, "limit_amount", "limit must be greater than zero")
	}

	stores := s.uow.Stores()
	if req.AccountID != nil {
		acc, err := stores.Accounts.FindByID(ctx, *req.AccountID)
		if err != nil {
			return nil, err
		}
		if err := checkOwner(acc.UserID, req.UserID, "account"); err != nil {
			return nil, err
		}
	}

	b := &domain.Budget{
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		LimitAmount: req.LimitAmount,
		SpentAmount: decimal.Zero,
		Status:      domain.BudgetActive,
		Version:     1,
	}
	if err := stores.Budgets.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBudget 只返回属于该用户的预算
func (s *LedgerService) GetBudget(ctx context.Context, userID, budgetID int64) (*domain.Budget, error) {
	b, err := s.uow.Stores().Budgets.FindByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(b.UserID, userID, "budget"); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBudgetSpending 管理员修正：直接设置已花费金额并重算状态
func (s *LedgerService) UpdateBudgetSpending(ctx context.Context, budgetID int64, spent decimal.Decimal) (*domain.Budget, error) {
	if spent.IsNegative() {
		return nil, domain.NewError(domain.ErrInvalidArgument, "spent_amount", "spent amount must not be negative")
	}

	var budget *domain.Budget
	err := s.execute(ctx, "update_budget_spending", func(ctx context.Context, st domain.Stores) error {
		b, err := st.Budgets.FindForUpdate(ctx, budgetID)
		if err != nil {
			return err
		}
		return s.writeSpent(ctx, st, b, spent, &budget)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("budget spending corrected",
		zap.Int64("budget_id", budgetID),
		zap.String("spent", budget.SpentAmount.String()),
		zap.String("status", string(budget.Status)),
	)
	return budget, nil
}

// RecomputeBudget 以挂在预算上的全部支出重新计算已花费金额
func (s *LedgerService) RecomputeBudget(ctx context.Context, budgetID int64) (*domain.Budget, error) {
	var budget *domain.Budget
	err := s.execute(ctx, "recompute_budget", func(ctx context.Context, st domain.Stores) error {
		b, err := st.Budgets.FindForUpdate(ctx, budgetID)
		if err != nil {
			return err
		}
		spent, err := st.Transactions.SumExpensesByBudget(ctx, budgetID)
		if err != nil {
			return err
		}
		return s.writeSpent(ctx, st, b, spent, &budget)
	})
	if err != nil {
		return nil, err
	}
	return budget, nil
}

func (s *LedgerService) writeSpent(ctx context.Context, st domain.Stores, b *domain.Budget, spent decimal.Decimal, out **domain.Budget) error {
	b.Recompute(spent)
	if err := st.Budgets.UpdateSpent(ctx, b.ID, b.SpentAmount, b.Status, b.Version); err != nil {
		return err
	}
	b.Version++
	*out = b
	return nil
}
