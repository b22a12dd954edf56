package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxz807/finledger/internal/ledger/domain"
)

// statusOf 错误类别到 HTTP 状态码的固定映射
func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.ErrInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrForbidden:
		return http.StatusForbidden
	case domain.ErrInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.ErrConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var de domain.Error
	if !errors.As(err, &de) || de.Kind == domain.ErrStorageFailure {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": domain.ErrStorageFailure, "error": "internal error"})
		return
	}

	body := gin.H{"code": de.Kind, "error": de.Message}
	if de.Field != "" {
		body["field"] = de.Field
	}
	c.JSON(statusOf(de.Kind), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": domain.ErrInvalidArgument, "error": msg})
}
