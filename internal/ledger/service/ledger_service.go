package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/platform/backoff"
)

// AccountCache 账户读缓存，未命中时 Get 返回 nil, nil
type AccountCache interface {
	Get(ctx context.Context, id int64) (*domain.Account, error)
	Set(ctx context.Context, acc *domain.Account) error
	Invalidate(ctx context.Context, ids ...int64) error
}

// Options 记账核心的策略参数
type Options struct {
	ExpensePolicy domain.ExpensePolicy
	// MaxRetries 乐观锁冲突时整体重试的次数，0 表示不重试
	MaxRetries int
	RetryBase  time.Duration
}

// LedgerService 核心服务
type LedgerService struct {
	uow    domain.UnitOfWork
	cache  AccountCache
	logger *zap.Logger
	opts   Options
	now    func() time.Time
}

// NewLedgerService cache 可以为 nil
func NewLedgerService(uow domain.UnitOfWork, logger *zap.Logger, opts Options, cache AccountCache) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ExpensePolicy == "" {
		opts.ExpensePolicy = domain.ExpenseStrict
	}
	return &LedgerService{
		uow:    uow,
		cache:  cache,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// execute 在一个事务里执行 fn；遇到 ConcurrencyConflict 时从头重新执行整个读-校验-写流程
func (s *LedgerService) execute(ctx context.Context, op string, fn func(ctx context.Context, st domain.Stores) error) error {
	for attempt := 0; ; attempt++ {
		err := s.uow.Do(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= s.opts.MaxRetries {
			return err
		}

		delay := backoff.ExponentialWithJitter(s.opts.RetryBase, attempt)
		s.logger.Debug("ledger write conflict, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if sleepErr := backoff.SleepWithContext(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

func (s *LedgerService) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.Int64s("account_ids", ids), zap.Error(err))
	}
}

// checkOwner 资源存在但不属于当前用户时返回 Forbidden
func checkOwner(ownerID, userID int64, entity string) error {
	if ownerID != userID {
		return domain.NewError(domain.ErrForbidden, "user_id", entity+" belongs to another user")
	}
	return nil
}

func (s *LedgerService) lockOwnedAccount(ctx context.Context, st domain.Stores, userID, id int64, requireActive bool) (*domain.Account, error) {
	acc, err := st.Accounts.FindForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(acc.UserID, userID, "account"); err != nil {
		return nil, err
	}
	if requireActive && !acc.IsActive {
		return nil, domain.NewError(domain.ErrInvalidArgument, "account_id", "account is inactive")
	}
	return acc, nil
}

// checkDebit 扣减后余额为负时，按策略拒绝
func (s *LedgerService) checkDebit(balance decimal.Decimal) error {
	if balance.IsNegative() && s.opts.ExpensePolicy == domain.ExpenseStrict {
		return domain.NewError(domain.ErrInsufficientFunds, "amount", "operation would result in negative balance")
	}
	return nil
}

// lockBudgets 按 id 升序锁定预算，避免并发操作互相死锁
func lockBudgets(ctx context.Context, st domain.Stores, ids ...int64) (map[int64]*domain.Budget, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[int64]*domain.Budget, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; ok {
			continue
		}
		b, err := st.Budgets.FindForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

// applyBudgetDelta 累加已花费金额 (不低于 0) 并刷新状态
func applyBudgetDelta(ctx context.Context, st domain.Stores, b *domain.Budget, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	spent := b.SpentAmount.Add(delta)
	if spent.IsNegative() {
		spent = decimal.Zero
	}
	b.Recompute(spent)
	if err := st.Budgets.UpdateSpent(ctx, b.ID, b.SpentAmount, b.Status, b.Version); err != nil {
		return err
	}
	b.Version++
	return nil
}

// budgetContribution 只有支出计入预算
func budgetContribution(t *domain.Transaction) decimal.Decimal {
	if t.BudgetID == nil || t.Direction != domain.Expense {
		return decimal.Zero
	}
	return t.Amount
}
