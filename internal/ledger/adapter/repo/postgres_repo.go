package repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// scoped 返回带 ctx 的会话；forUpdate 且开启行锁时追加 SELECT ... FOR UPDATE
// SQLite 没有行级锁，测试环境关闭 lock，只依赖版本号
func scoped(ctx context.Context, db *gorm.DB, lock, forUpdate bool) *gorm.DB {
	q := db.WithContext(ctx)
	if forUpdate && lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func findErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NewError(domain.ErrNotFound, "id", entity+" not found")
	}
	return domain.Storage(err, "find "+entity)
}

// casResult 检查乐观锁更新结果：没有行被更新，说明 version 不匹配（被别人改过了）
func casResult(result *gorm.DB, entity string) error {
	if result.Error != nil {
		return domain.Storage(result.Error, "update "+entity)
	}
	if result.RowsAffected == 0 {
		return domain.NewError(domain.ErrConcurrencyConflict, "version", entity+" modified concurrently")
	}
	return nil
}

type PostgresAccountRepo struct {
	db   *gorm.DB
	lock bool
}

func NewAccountRepo(db *gorm.DB, rowLocking bool) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db, lock: rowLocking}
}

func (r *PostgresAccountRepo) Create(ctx context.Context, acc *domain.Account) error {
	if err := r.db.WithContext(ctx).Create(acc).Error; err != nil {
		return domain.Storage(err, "create account")
	}
	return nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.find(ctx, id, false)
}

func (r *PostgresAccountRepo) FindForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	return r.find(ctx, id, true)
}

func (r *PostgresAccountRepo) find(ctx context.Context, id int64, forUpdate bool) (*domain.Account, error) {
	var account domain.Account
	if err := scoped(ctx, r.db, r.lock, forUpdate).First(&account, id).Error; err != nil {
		return nil, findErr(err, "account")
	}
	return &account, nil
}

func (r *PostgresAccountRepo) ListByUser(ctx context.Context, userID int64, includeHidden bool) ([]domain.Account, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !includeHidden {
		q = q.Where("is_hidden = ?", false)
	}
	var accounts []domain.Account
	if err := q.Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, domain.Storage(err, "list accounts")
	}
	return accounts, nil
}

// UpdateBalance 实现乐观锁更新
// SQL: UPDATE accounts SET balance = ?, version = version + 1 WHERE id = ? AND version = ?
func (r *PostgresAccountRepo) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal, version int64) error {
	result := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	return casResult(result, "account")
}

func (r *PostgresAccountRepo) SetActive(ctx context.Context, id int64, active bool, version int64) error {
	result := r.db.WithContext(ctx).Model(&domain.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"is_active": active,
			"version":   gorm.Expr("version + 1"),
		})
	return casResult(result, "account")
}

// ---------------------------------------------------------

type PostgresTransactionRepo struct {
	db   *gorm.DB
	lock bool
}

func NewTransactionRepo(db *gorm.DB, rowLocking bool) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db, lock: rowLocking}
}

func (r *PostgresTransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return domain.Storage(err, "create transaction")
	}
	return nil
}

func (r *PostgresTransactionRepo) FindByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.find(ctx, id, false)
}

func (r *PostgresTransactionRepo) FindForUpdate(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.find(ctx, id, true)
}

func (r *PostgresTransactionRepo) find(ctx context.Context, id int64, forUpdate bool) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := scoped(ctx, r.db, r.lock, forUpdate).First(&t, id).Error; err != nil {
		return nil, findErr(err, "transaction")
	}
	return &t, nil
}

func (r *PostgresTransactionRepo) Update(ctx context.Context, t *domain.Transaction, version int64) error {
	result := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND version = ?", t.ID, version).
		Updates(map[string]interface{}{
			"amount":      t.Amount,
			"direction":   t.Direction,
			"category_id": t.CategoryID,
			"budget_id":   t.BudgetID,
			"description": t.Description,
			"occurred_at": t.OccurredAt,
			"version":     gorm.Expr("version + 1"),
		})
	if err := casResult(result, "transaction"); err != nil {
		return err
	}
	t.Version = version + 1
	return nil
}

func (r *PostgresTransactionRepo) Delete(ctx context.Context, id int64, version int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&domain.Transaction{})
	return casResult(result, "transaction")
}

func (r *PostgresTransactionRepo) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, int64, error) {
	base := r.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", f.UserID)
	if f.AccountID != nil {
		base = base.Where("account_id = ?", *f.AccountID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, domain.Storage(err, "count transactions")
	}

	var items []domain.Transaction
	if err := base.Session(&gorm.Session{}).
		Order("occurred_at DESC, id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, domain.Storage(err, "list transactions")
	}
	return items, total, nil
}

// SumExpensesByBudget 在 Go 里用 decimal 累加，不依赖数据库 SUM 的数值类型
func (r *PostgresTransactionRepo) SumExpensesByBudget(ctx context.Context, budgetID int64) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("budget_id = ? AND direction = ?", budgetID, domain.Expense).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, domain.Storage(err, "sum budget expenses")
	}

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	return sum, nil
}
