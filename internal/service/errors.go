package service

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类，由 HTTP 层映射为状态码
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"
	KindForbidden    ErrorKind = "Forbidden"
	KindConflict     ErrorKind = "Conflict"
	KindInvalidState ErrorKind = "InvalidState"
	KindInvalidInput ErrorKind = "InvalidInput"
)

// ServiceError 带分类的业务错误
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error     { return newError(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) error    { return newError(KindForbidden, format, args...) }
func Conflict(format string, args ...any) error     { return newError(KindConflict, format, args...) }
func InvalidState(format string, args ...any) error { return newError(KindInvalidState, format, args...) }
func InvalidInput(format string, args ...any) error { return newError(KindInvalidInput, format, args...) }

// KindOf 返回错误分类；非 ServiceError 返回空串
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
