package domain

import (
	"errors"
	"fmt"
)

// Kind 错误类别，也可直接作为 errors.Is 的目标
type Kind string

func (k Kind) Error() string {
	return string(k)
}

const (
	ErrInvalidArgument     Kind = "INVALID_ARGUMENT"
	ErrNotFound            Kind = "NOT_FOUND"
	ErrForbidden           Kind = "FORBIDDEN"
	ErrInsufficientFunds   Kind = "INSUFFICIENT_FUNDS"
	ErrConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	ErrStorageFailure      Kind = "STORAGE_FAILURE"
)

// Error 记账核心返回的结构化错误
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Is 让 errors.Is(err, domain.ErrNotFound) 按类别匹配
func (e Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func (e Error) Unwrap() error {
	return e.Err
}

// NewError 创建带字段信息的领域错误
func NewError(kind Kind, field, message string) error {
	return Error{Kind: kind, Field: field, Message: message}
}

// Storage 把持久层错误包装成 StorageFailure；已是领域错误的原样返回
func Storage(err error, message string) error {
	if err == nil {
		return nil
	}
	var de Error
	if errors.As(err, &de) {
		return err
	}
	return Error{Kind: ErrStorageFailure, Message: message, Err: err}
}

// KindOf 取出错误类别，非领域错误返回空字符串
func KindOf(err error) Kind {
	var de Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
