package domain

import "github.com/shopspring/decimal"

// AccountType 账户类型
type AccountType string

const (
	Checking   AccountType = "checking"
	Savings    AccountType = "savings"
	Credit     AccountType = "credit"
	Cash       AccountType = "cash"
	Investment AccountType = "investment"
)

// IsValid 校验账户类型
func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, Credit, Cash, Investment:
		return true
	}
	return false
}

// Direction 收支方向
type Direction string

const (
	Income  Direction = "INCOME"
	Expense Direction = "EXPENSE"
)

// IsValid 校验方向合法性
func (d Direction) IsValid() bool {
	return d == Income || d == Expense
}

// Signed 返回该方向对账户余额的影响 (收入为正, 支出为负)
func (d Direction) Signed(amount decimal.Decimal) decimal.Decimal {
	if d == Expense {
		return amount.Neg()
	}
	return amount
}

// BudgetStatus 预算状态
type BudgetStatus string

const (
	BudgetActive    BudgetStatus = "ACTIVE"
	BudgetExceeded  BudgetStatus = "EXCEEDED"
	BudgetCompleted BudgetStatus = "COMPLETED"
	BudgetPaused    BudgetStatus = "PAUSED"
)

// NextBudgetStatus 根据已花费金额重新计算状态。
// COMPLETED / PAUSED 由外部设置，这里不改变。
func NextBudgetStatus(current BudgetStatus, spent, limit decimal.Decimal) BudgetStatus {
	switch current {
	case BudgetCompleted, BudgetPaused:
		return current
	}
	if spent.GreaterThanOrEqual(limit) {
		return BudgetExceeded
	}
	return BudgetActive
}

// ExpensePolicy 支出是否允许把余额扣成负数
type ExpensePolicy string

const (
	ExpenseStrict        ExpensePolicy = "strict"
	ExpenseAllowNegative ExpensePolicy = "allow_negative"
)
