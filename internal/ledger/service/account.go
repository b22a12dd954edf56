package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// OpenAccountRequest 开户请求
type OpenAccountRequest struct {
	UserID         int64
	Name           string
	Type           domain.AccountType
	Currency       string
	InitialBalance decimal.Decimal
	Hidden         bool
}

// OpenAccount 新建账户；余额之后只能通过记账操作改变
func (s *LedgerService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, domain.NewError(domain.ErrInvalidArgument, "name", "name is required")
	}
	if req.Type == "" {
		req.Type = domain.Checking
	}
	if !req.Type.IsValid() {
		return nil, domain.NewError(domain.ErrInvalidArgument, "type", "unknown account type")
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if len(req.Currency) != 3 {
		return nil, domain.NewError(domain.ErrInvalidArgument, "currency", "currency must be a 3-letter code")
	}
	if req.InitialBalance.IsNegative() {
		return nil, domain.NewError(domain.ErrInvalidArgument, "initial_balance", "initial balance must not be negative")
	}

	acc := &domain.Account{
		UserID:   req.UserID,
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
		Balance:  req.InitialBalance,
		IsActive: true,
		IsHidden: req.Hidden,
		Version:  1,
	}
	if err := s.uow.Stores().Accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("account opened", zap.Int64("account_id", acc.ID), zap.Int64("user_id", acc.UserID))
	return acc, nil
}

// GetAccount 优先读缓存；缓存故障只记录日志，回落到数据库
func (s *LedgerService) GetAccount(ctx context.Context, userID, accountID int64) (*domain.Account, error) {
	if s.cache != nil {
		acc, err := s.cache.Get(ctx, accountID)
		if err != nil {
			s.logger.Warn("balance cache read failed", zap.Int64("account_id", accountID), zap.Error(err))
		}
		if acc != nil {
			if err := checkOwner(acc.UserID, userID, "account"); err != nil {
				return nil, err
			}
			return acc, nil
		}
	}

	acc, err := s.uow.Stores().Accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(acc.UserID, userID, "account"); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, acc); err != nil {
			s.logger.Warn("balance cache write failed", zap.Int64("account_id", accountID), zap.Error(err))
		}
	}
	return acc, nil
}

// ListAccounts 默认不返回隐藏账户
func (s *LedgerService) ListAccounts(ctx context.Context, userID int64, includeHidden bool) ([]domain.Account, error) {
	return s.uow.Stores().Accounts.ListByUser(ctx, userID, includeHidden)
}

// DeactivateAccount 停用后账户不能再参与划转或记账，已有流水仍可删除冲回
func (s *LedgerService) DeactivateAccount(ctx context.Context, userID, accountID int64) (*domain.Account, error) {
	var acc *domain.Account
	err := s.execute(ctx, "deactivate_account", func(ctx context.Context, st domain.Stores) error {
		a, err := s.lockOwnedAccount(ctx, st, userID, accountID, false)
		if err != nil {
			return err
		}
		if err := st.Accounts.SetActive(ctx, a.ID, false, a.Version); err != nil {
			return err
		}
		a.IsActive = false
		a.Version++
		acc = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, accountID)
	return acc, nil
}
