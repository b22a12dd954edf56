package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xxz807/finledger/internal/ledger/adapter/repo"
	"github.com/xxz807/finledger/internal/ledger/api"
	"github.com/xxz807/finledger/internal/ledger/domain"
	"github.com/xxz807/finledger/internal/ledger/service"
	"github.com/xxz807/finledger/internal/platform/database/dbtest"
)

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	uow := repo.NewUnitOfWork(dbtest.New(t, domain.Models()...), false)
	svc := service.NewLedgerService(uow, zap.NewNop(), service.Options{}, nil)
	return NewServer(zap.NewNop(), "0", "test", api.NewLedgerHandler(svc))
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestLedgerRoutesRequireUser(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set(api.UserHeader, "7")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transfers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", api.UserHeader)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
