package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/ledger/service"
)

type LedgerHandler struct {
	svc *service.LedgerService
}

func NewLedgerHandler(svc *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// RegisterRoutes 注册路由，调用方需先挂上 RequireUser
func (h *LedgerHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.POST("", h.OpenAccount)
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.POST("/:id/deactivate", h.DeactivateAccount)
	}

	r.POST("/transfers", h.Transfer)

	txs := r.Group("/transactions")
	{
		txs.POST("", h.RecordTransaction)
		txs.GET("", h.ListTransactions)
		txs.PUT("/:id", h.UpdateTransaction)
		txs.DELETE("/:id", h.DeleteTransaction)
	}

	budgets := r.Group("/budgets")
	{
		budgets.POST("", h.CreateBudget)
		budgets.GET("/:id", h.GetBudget)
		budgets.PUT("/:id/spending", h.UpdateBudgetSpending)
		budgets.POST("/:id/recompute", h.RecomputeBudget)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func parseAmount(c *gin.Context, field, raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, "invalid "+field+": "+raw)
		return decimal.Zero, false
	}
	return d, true
}

// parseOccurredAt 支持 RFC3339 和纯日期，空值取当前时间
func parseOccurredAt(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	badRequest(c, "invalid occurred_at: "+raw)
	return time.Time{}, false
}

// ---------------------------------------------------------
// Accounts

// OpenAccount POST /api/v1/accounts
func (h *LedgerHandler) OpenAccount(c *gin.Context) {
	var req OpenAccountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	initial := decimal.Zero
	if req.InitialBalance != "" {
		var ok bool
		if initial, ok = parseAmount(c, "initial_balance", req.InitialBalance); !ok {
			return
		}
	}

	acc, err := h.svc.OpenAccount(c.Request.Context(), service.OpenAccountRequest{
		UserID:         CurrentUser(c),
		Name:           req.Name,
		Type:           domain.AccountType(req.Type),
		Currency:       req.Currency,
		InitialBalance: initial,
		Hidden:         req.Hidden,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAccountResp(acc))
}

// ListAccounts GET /api/v1/accounts?include_hidden=true
func (h *LedgerHandler) ListAccounts(c *gin.Context) {
	includeHidden := c.Query("include_hidden") == "true"
	accounts, err := h.svc.ListAccounts(c.Request.Context(), CurrentUser(c), includeHidden)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]AccountResp, 0, len(accounts))
	for i := range accounts {
		items = append(items, toAccountResp(&accounts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LedgerHandler) GetAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acc, err := h.svc.GetAccount(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResp(acc))
}

func (h *LedgerHandler) DeactivateAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acc, err := h.svc.DeactivateAccount(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResp(acc))
}

// ---------------------------------------------------------
// Transfers

// Transfer POST /api/v1/transfers
// 同一 reference_id 重放返回首次的结果
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req TransferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	amount, ok := parseAmount(c, "amount", req.Amount)
	if !ok {
		return
	}

	t, err := h.svc.Transfer(c.Request.Context(), service.TransferRequest{
		UserID:               CurrentUser(c),
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               amount,
		Note:                 req.Note,
		ReferenceID:          req.ReferenceID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransferResp(t))
}

// ---------------------------------------------------------
// Transactions

// RecordTransaction POST /api/v1/transactions
func (h *LedgerHandler) RecordTransaction(c *gin.Context) {
	var req TransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	amount, ok := parseAmount(c, "amount", req.Amount)
	if !ok {
		return
	}
	occurredAt, ok := parseOccurredAt(c, req.OccurredAt)
	if !ok {
		return
	}

	t, err := h.svc.RecordTransaction(c.Request.Context(), service.RecordTransactionRequest{
		UserID:      CurrentUser(c),
		AccountID:   req.AccountID,
		Amount:      amount,
		Direction:   domain.Direction(req.Direction),
		CategoryID:  req.CategoryID,
		BudgetID:    req.BudgetID,
		Description: req.Description,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTransactionResp(t))
}

// UpdateTransaction PUT /api/v1/transactions/:id
// account_id 不可修改，请求体中的值会被忽略
func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req TransactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	amount, ok := parseAmount(c, "amount", req.Amount)
	if !ok {
		return
	}
	occurredAt, ok := parseOccurredAt(c, req.OccurredAt)
	if !ok {
		return
	}

	t, err := h.svc.UpdateTransaction(c.Request.Context(), service.UpdateTransactionRequest{
		UserID:        CurrentUser(c),
		TransactionID: id,
		Amount:        amount,
		Direction:     domain.Direction(req.Direction),
		CategoryID:    req.CategoryID,
		BudgetID:      req.BudgetID,
		Description:   req.Description,
		OccurredAt:    occurredAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTransactionResp(t))
}

// DeleteTransaction DELETE /api/v1/transactions/:id
// 不存在和不属于当前用户一律返回 404，不泄露流水是否存在
func (h *LedgerHandler) DeleteTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.svc.DeleteTransaction(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"code": domain.ErrNotFound, "error": "transaction not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTransactions GET /api/v1/transactions?account_id=&page=&page_size=
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	req := service.ListTransactionsRequest{UserID: CurrentUser(c)}
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid account_id")
			return
		}
		req.AccountID = &id
	}
	req.Page, _ = strconv.Atoi(c.Query("page"))
	req.PageSize, _ = strconv.Atoi(c.Query("page_size"))

	items, total, err := h.svc.ListTransactions(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]TransactionResp, 0, len(items))
	for i := range items {
		out = append(out, toTransactionResp(&items[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "total": total})
}

// ---------------------------------------------------------
// Budgets

func (h *LedgerHandler) CreateBudget(c *gin.Context) {
	var req CreateBudgetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	limit, ok := parseAmount(c, "limit_amount", req.LimitAmount)
	if !ok {
		return
	}

	b, err := h.svc.CreateBudget(c.Request.Context(), service.CreateBudgetRequest{
		UserID:      CurrentUser(c),
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		LimitAmount: limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBudgetResp(b))
}

func (h *LedgerHandler) GetBudget(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.svc.GetBudget(c.Request.Context(), CurrentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBudgetResp(b))
}

// UpdateBudgetSpending PUT /api/v1/budgets/:id/spending
// 人工校正已花费金额，状态随之重新计算
func (h *LedgerHandler) UpdateBudgetSpending(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req BudgetSpendingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	spent, ok := parseAmount(c, "spent_amount", req.SpentAmount)
	if !ok {
		return
	}
	// 服务层按预算 ID 操作，归属在这里先校验
	if _, err := h.svc.GetBudget(c.Request.Context(), CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}

	b, err := h.svc.UpdateBudgetSpending(c.Request.Context(), id, spent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBudgetResp(b))
}

func (h *LedgerHandler) RecomputeBudget(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.svc.GetBudget(c.Request.Context(), CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}

	b, err := h.svc.RecomputeBudget(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBudgetResp(b))
}
