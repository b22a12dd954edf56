package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountRepository 定义账户仓储接口
// 这是一个 Port (端口)，Adapter (适配器) 将在基础设施层实现它
type AccountRepository interface {
	Create(ctx context.Context, acc *Account) error

	// FindByID 不存在时返回 ErrNotFound
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindForUpdate 读取并(在支持时)锁定该行直到事务结束
	FindForUpdate(ctx context.Context, id int64) (*Account, error)

	ListByUser(ctx context.Context, userID int64, includeHidden bool) ([]Account, error)

	// UpdateBalance 核心：写入新余额 (带乐观锁版本号)
	// 版本不匹配时返回 ErrConcurrencyConflict
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal, version int64) error

	// SetActive 停用/启用账户 (带乐观锁版本号)
	SetActive(ctx context.Context, id int64, active bool, version int64) error
}

// TransactionRepository 定义收支流水仓储接口
type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	FindForUpdate(ctx context.Context, id int64) (*Transaction, error)

	// Update 按版本号覆盖金额、方向、分类、预算等字段
	Update(ctx context.Context, t *Transaction, version int64) error

	// Delete 按版本号删除，版本不匹配时返回 ErrConcurrencyConflict
	Delete(ctx context.Context, id int64, version int64) error

	List(ctx context.Context, filter TransactionFilter) ([]Transaction, int64, error)

	// SumExpensesByBudget 统计挂在预算上的全部支出
	SumExpensesByBudget(ctx context.Context, budgetID int64) (decimal.Decimal, error)
}

// TransactionFilter 列表查询条件
type TransactionFilter struct {
	UserID    int64
	AccountID *int64
	Limit     int
	Offset    int
}

// TransferRepository 定义内部划转仓储接口
type TransferRepository interface {
	Create(ctx context.Context, t *InternalTransfer) error

	// FindByReference 幂等性检查，不存在时返回 ErrNotFound
	FindByReference(ctx context.Context, userID int64, refID string) (*InternalTransfer, error)
}

// BudgetRepository 定义预算仓储接口
type BudgetRepository interface {
	Create(ctx context.Context, b *Budget) error
	FindByID(ctx context.Context, id int64) (*Budget, error)
	FindForUpdate(ctx context.Context, id int64) (*Budget, error)

	// UpdateSpent 写入已花费金额和状态 (带乐观锁版本号)
	UpdateSpent(ctx context.Context, id int64, spent decimal.Decimal, status BudgetStatus, version int64) error
}

// Stores 同一个事务会话下的全部仓储
type Stores struct {
	Accounts     AccountRepository
	Transactions TransactionRepository
	Transfers    TransferRepository
	Budgets      BudgetRepository
}

// UnitOfWork 事务边界：fn 返回 nil 时提交，否则整体回滚
type UnitOfWork interface {
	// Stores 返回不在事务内的仓储，用于只读查询
	Stores() Stores

	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
