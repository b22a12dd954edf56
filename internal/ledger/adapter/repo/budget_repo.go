package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

type PostgresTransferRepo struct {
	db *gorm.DB
}

func NewTransferRepo(db *gorm.DB) *PostgresTransferRepo {
	return &PostgresTransferRepo{db: db}
}

func (r *PostgresTransferRepo) Create(ctx context.Context, t *domain.InternalTransfer) error {
	err := r.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 同一 reference 被并发请求抢先写入，交给上层重试后走幂等返回
		return domain.NewError(domain.ErrConcurrencyConflict, "reference_id", "transfer reference written concurrently")
	}
	if err != nil {
		return domain.Storage(err, "create transfer")
	}
	return nil
}

func (r *PostgresTransferRepo) FindByReference(ctx context.Context, userID int64, refID string) (*domain.InternalTransfer, error) {
	var t domain.InternalTransfer
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND reference_id = ?", userID, refID).
		First(&t).Error
	if err != nil {
		return nil, findErr(err, "transfer")
	}
	return &t, nil
}

// ---------------------------------------------------------

type PostgresBudgetRepo struct {
	db   *gorm.DB
	lock bool
}

func NewBudgetRepo(db *gorm.DB, rowLocking bool) *PostgresBudgetRepo {
	return &PostgresBudgetRepo{db: db, lock: rowLocking}
}

func (r *PostgresBudgetRepo) Create(ctx context.Context, b *domain.Budget) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return domain.Storage(err, "create budget")
	}
	return nil
}

func (r *PostgresBudgetRepo) FindByID(ctx context.Context, id int64) (*domain.Budget, error) {
	return r.find(ctx, id, false)
}

func (r *PostgresBudgetRepo) FindForUpdate(ctx context.Context, id int64) (*domain.Budget, error) {
	return r.find(ctx, id, true)
}

func (r *PostgresBudgetRepo) find(ctx context.Context, id int64, forUpdate bool) (*domain.Budget, error) {
	var b domain.Budget
	if err := scoped(ctx, r.db, r.lock, forUpdate).First(&b, id).Error; err != nil {
		return nil, findErr(err, "budget")
	}
	return &b, nil
}

// UpdateSpent SQL: UPDATE budgets SET spent_amount = ?, status = ?, version = version + 1 WHERE id = ? AND version = ?
func (r *PostgresBudgetRepo) UpdateSpent(ctx context.Context, id int64, spent decimal.Decimal, status domain.BudgetStatus, version int64) error {
	result := r.db.WithContext(ctx).Model(&domain.Budget{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"spent_amount": spent,
			"status":       status,
			"version":      gorm.Expr("version + 1"),
		})
	return casResult(result, "budget")
}
