package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// GormUnitOfWork 用 gorm 的 Transaction 实现事务边界
type GormUnitOfWork struct {
	db   *gorm.DB
	lock bool
}

func NewUnitOfWork(db *gorm.DB, rowLocking bool) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, lock: rowLocking}
}

func (u *GormUnitOfWork) Stores() domain.Stores {
	return newStores(u.db, u.lock)
}

// Do 开启数据库事务，fn 里的所有仓储都绑定到同一个 tx
// fn 返回错误或 panic 时 gorm 会自动回滚整个事务
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newStores(tx, u.lock))
	})
	return domain.Storage(err, "commit unit of work")
}

func newStores(db *gorm.DB, lock bool) domain.Stores {
	return domain.Stores{
		Accounts:     NewAccountRepo(db, lock),
		Transactions: NewTransactionRepo(db, lock),
		Transfers:    NewTransferRepo(db),
		Budgets:      NewBudgetRepo(db, lock),
	}
}
