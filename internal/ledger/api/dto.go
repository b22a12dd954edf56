package api

import (
	"time"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// 金额一律传字符串，防止精度丢失

type OpenAccountReq struct {
	Name           string `json:"name" binding:"required,max=100"`
	Type           string `json:"type" binding:"omitempty,oneof=checking savings credit cash investment"`
	Currency       string `json:"currency" binding:"omitempty,len=3"`
	InitialBalance string `json:"initial_balance"`
	Hidden         bool   `json:"hidden"`
}

type TransferReq struct {
	SourceAccountID      int64  `json:"source_account_id" binding:"required"`
	DestinationAccountID int64  `json:"destination_account_id" binding:"required"`
	Amount               string `json:"amount" binding:"required"`
	Note                 string `json:"note" binding:"max=255"`
	ReferenceID          string `json:"reference_id" binding:"max=64"`
}

type TransactionReq struct {
	AccountID   int64  `json:"account_id"`
	Amount      string `json:"amount" binding:"required"`
	Direction   string `json:"direction" binding:"required,oneof=INCOME EXPENSE"`
	CategoryID  *int64 `json:"category_id"`
	BudgetID    *int64 `json:"budget_id"`
	Description string `json:"description" binding:"max=255"`
	OccurredAt  string `json:"occurred_at"`
}

type CreateBudgetReq struct {
	Name        string `json:"name" binding:"required,max=100"`
	AccountID   *int64 `json:"account_id"`
	CategoryID  *int64 `json:"category_id"`
	LimitAmount string `json:"limit_amount" binding:"required"`
}

type BudgetSpendingReq struct {
	SpentAmount string `json:"spent_amount" binding:"required"`
}

type AccountResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	IsActive  bool      `json:"is_active"`
	IsHidden  bool      `json:"is_hidden"`
	CreatedAt time.Time `json:"created_at"`
}

type TransferResp struct {
	ID                   int64     `json:"id"`
	ReferenceID          string    `json:"reference_id"`
	SourceAccountID      int64     `json:"source_account_id"`
	DestinationAccountID int64     `json:"destination_account_id"`
	Amount               string    `json:"amount"`
	Note                 string    `json:"note"`
	CreatedAt            time.Time `json:"created_at"`
}

type TransactionResp struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Amount      string    `json:"amount"`
	Direction   string    `json:"direction"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	BudgetID    *int64    `json:"budget_id,omitempty"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type BudgetResp struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AccountID   *int64 `json:"account_id,omitempty"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	LimitAmount string `json:"limit_amount"`
	SpentAmount string `json:"spent_amount"`
	Status      string `json:"status"`
}

func toAccountResp(a *domain.Account) AccountResp {
	return AccountResp{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  a.Currency,
		Balance:   a.Balance.StringFixed(2),
		IsActive:  a.IsActive,
		IsHidden:  a.IsHidden,
		CreatedAt: a.CreatedAt,
	}
}

func toTransferResp(t *domain.InternalTransfer) TransferResp {
	return TransferResp{
		ID:                   t.ID,
		ReferenceID:          t.ReferenceID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount.StringFixed(2),
		Note:                 t.Note,
		CreatedAt:            t.CreatedAt,
	}
}

func toTransactionResp(t *domain.Transaction) TransactionResp {
	return TransactionResp{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Amount:      t.Amount.StringFixed(2),
		Direction:   string(t.Direction),
		CategoryID:  t.CategoryID,
		BudgetID:    t.BudgetID,
		Description: t.Description,
		OccurredAt:  t.OccurredAt,
	}
}

func toBudgetResp(b *domain.Budget) BudgetResp {
	return BudgetResp{
		ID:          b.ID,
		Name:        b.Name,
		AccountID:   b.AccountID,
		CategoryID:  b.CategoryID,
		LimitAmount: b.LimitAmount.StringFixed(2),
		SpentAmount: b.SpentAmount.StringFixed(2),
		Status:      string(b.Status),
	}
}
