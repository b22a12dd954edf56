package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account 用户的资金账户
// 对应数据库表: accounts
type Account struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	UserID    int64           `gorm:"not null;index"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Type      AccountType     `gorm:"type:varchar(16);not null"`
	Currency  string          `gorm:"type:char(3);default:'USD';not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	IsActive  bool            `gorm:"not null;default:true"`
	IsHidden  bool            `gorm:"not null;default:false"`
	Version   int64           `gorm:"not null;default:1"` // 乐观锁
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}

// Transaction 单账户的收入或支出
// 对应数据库表: transactions
type Transaction struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	UserID      int64           `gorm:"not null;index"`
	AccountID   int64           `gorm:"not null;index"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null"` // 必须 > 0
	Direction   Direction       `gorm:"type:varchar(8);not null"`
	CategoryID  *int64          `gorm:"index"`
	BudgetID    *int64          `gorm:"index"`
	Description string          `gorm:"type:text"`
	OccurredAt  time.Time       `gorm:"not null;index"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Transaction) TableName() string {
	return "transactions"
}

// InternalTransfer 同一用户两个账户之间的划转
// 对应数据库表: internal_transfers
type InternalTransfer struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement"`
	UserID               int64           `gorm:"not null;uniqueIndex:idx_transfer_user_ref"`
	ReferenceID          string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_transfer_user_ref"`
	SourceAccountID      int64           `gorm:"not null;index"`
	DestinationAccountID int64           `gorm:"not null;index"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Note                 string          `gorm:"type:text"`
	CreatedAt            time.Time
}

func (InternalTransfer) TableName() string {
	return "internal_transfers"
}

// Budget 预算，SpentAmount 由记账操作维护
// 对应数据库表: budgets
type Budget struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	UserID      int64           `gorm:"not null;index"`
	AccountID   *int64          `gorm:"index"`
	CategoryID  *int64          `gorm:"index"`
	Name        string          `gorm:"type:varchar(100);not null"`
	LimitAmount decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	SpentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Status      BudgetStatus    `gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	Version     int64           `gorm:"not null;default:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Budget) TableName() string {
	return "budgets"
}

// Recompute 设置已花费金额并刷新状态
func (b *Budget) Recompute(spent decimal.Decimal) {
	b.SpentAmount = spent
	b.Status = NextBudgetStatus(b.Status, spent, b.LimitAmount)
}

// Models 需要建表的全部模型
func Models() []interface{} {
	return []interface{}{
		&Account{},
		&Transaction{},
		&InternalTransfer{},
		&Budget{},
	}
}
