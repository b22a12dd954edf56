package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// TransferRequest 内部划转请求
type TransferRequest struct {
	UserID               int64
	SourceAccountID      int64
	DestinationAccountID int64
	Amount               decimal.Decimal
	Note                 string
	// ReferenceID 幂等键，为空时自动生成
	ReferenceID string
}

func (r TransferRequest) validate() error {
	if !r.Amount.IsPositive() {
		return domain.NewError(domain.ErrInvalidArgument, "amount", "amount must be greater than zero")
	}
	if r.SourceAccountID == r.DestinationAccountID {
		return domain.NewError(domain.ErrInvalidArgument, "destination_account_id", "source and destination accounts must differ")
	}
	return nil
}

// Transfer 在同一用户的两个账户之间划转资金 (ACID Transaction Script)
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (*domain.InternalTransfer, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.ReferenceID == "" {
		req.ReferenceID = uuid.NewString()
	}

	var record *domain.InternalTransfer
	replayed := false

	err := s.execute(ctx, "transfer", func(ctx context.Context, st domain.Stores) error {
		record, replayed = nil, false

		// 幂等性检查
		if existing, err := findReplay(ctx, st, req); err != nil || existing != nil {
			record, replayed = existing, existing != nil
			return err
		}

		src, dst, err := s.lockTransferAccounts(ctx, st, req)
		if err != nil {
			return err
		}

		// 拿到行锁后再查一次：同一 reference 的并发请求在锁上排队，
		// 前一个提交后这里能看到它的记录
		if existing, err := findReplay(ctx, st, req); err != nil || existing != nil {
			record, replayed = existing, existing != nil
			return err
		}

		if src.Currency != dst.Currency {
			return domain.NewError(domain.ErrInvalidArgument, "destination_account_id", "accounts use different currencies")
		}
		if src.Balance.LessThan(req.Amount) {
			return domain.NewError(domain.ErrInsufficientFunds, "amount", "source balance is lower than the transfer amount")
		}

		if err := st.Accounts.UpdateBalance(ctx, src.ID, src.Balance.Sub(req.Amount), src.Version); err != nil {
			return err
		}
		if err := st.Accounts.UpdateBalance(ctx, dst.ID, dst.Balance.Add(req.Amount), dst.Version); err != nil {
			return err
		}

		record = &domain.InternalTransfer{
			UserID:               req.UserID,
			ReferenceID:          req.ReferenceID,
			SourceAccountID:      src.ID,
			DestinationAccountID: dst.ID,
			Amount:               req.Amount,
			Note:                 req.Note,
			CreatedAt:            s.now(),
		}
		return st.Transfers.Create(ctx, record)
	})
	if err != nil {
		s.logger.Debug("transfer rejected", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	if !replayed {
		s.invalidate(ctx, req.SourceAccountID, req.DestinationAccountID)
		s.logger.Info("transfer posted",
			zap.Int64("transfer_id", record.ID),
			zap.String("reference_id", record.ReferenceID),
			zap.String("amount", record.Amount.String()),
		)
	}
	return record, nil
}

// lockTransferAccounts 按 id 升序加锁，两个方向相反的划转不会互相死锁
func (s *LedgerService) lockTransferAccounts(ctx context.Context, st domain.Stores, req TransferRequest) (*domain.Account, *domain.Account, error) {
	firstID, secondID := req.SourceAccountID, req.DestinationAccountID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}

	first, err := st.Accounts.FindForUpdate(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := st.Accounts.FindForUpdate(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}

	src, dst := first, second
	if src.ID != req.SourceAccountID {
		src, dst = second, first
	}

	for _, acc := range []*domain.Account{src, dst} {
		if err := checkOwner(acc.UserID, req.UserID, "account"); err != nil {
			return nil, nil, err
		}
		if !acc.IsActive {
			return nil, nil, domain.NewError(domain.ErrInvalidArgument, "account_id", "account is inactive")
		}
	}
	return src, dst, nil
}

// findReplay 返回同一 reference 已落库的划转；参数不一致视为非法复用
func findReplay(ctx context.Context, st domain.Stores, req TransferRequest) (*domain.InternalTransfer, error) {
	existing, err := st.Transfers.FindByReference(ctx, req.UserID, req.ReferenceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !sameTransfer(existing, req) {
		return nil, domain.NewError(domain.ErrInvalidArgument, "reference_id", "reference id already used for a different transfer")
	}
	return existing, nil
}

func sameTransfer(t *domain.InternalTransfer, req TransferRequest) bool {
	return t.SourceAccountID == req.SourceAccountID &&
		t.DestinationAccountID == req.DestinationAccountID &&
		t.Amount.Equal(req.Amount)
}
