// Package apperror describes application errors with a machine-readable code,
// a severity and the offending parameter, so callers can branch on the kind of
// failure instead of parsing messages.
package apperror

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrorCode код ошибки
type ErrorCode string

const (
	// Параметры
	CodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	CodeDomainError          ErrorCode = "DOMAIN_ERROR"
	CodeInvalidArgument      ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput             ErrorCode = "NIL_INPUT"

	// Вычисления
	CodeIntractable ErrorCode = "INTRACTABLE"
	CodeTrialFailed ErrorCode = "TRIAL_FAILED"
	CodeTimeout     ErrorCode = "TIMEOUT"

	// Общие
	CodeInternal ErrorCode = "INTERNAL_ERROR"
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// Severity уровень ошибки
type Severity int

const (
	// SeverityWarning вызывающий обходит ситуацию и продолжает работу
	SeverityWarning Severity = iota
	// SeverityError операция не выполнена
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Error ошибка приложения
type Error struct {
	Code     ErrorCode
	Message  string
	Field    string // параметр, к которому относится ошибка
	Details  map[string]any
	Cause    error
	Severity Severity
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message, field string, severity Severity) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: severity,
	}
}

// New ошибка с уровнем SeverityError
func New(code ErrorCode, message string) *Error {
	return newError(code, message, "", SeverityError)
}

// Newf как New, с форматированием
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithField ошибка, привязанная к параметру
func NewWithField(code ErrorCode, message, field string) *Error {
	return newError(code, message, field, SeverityError)
}

// NewWarning ошибка с уровнем SeverityWarning
func NewWarning(code ErrorCode, message string) *Error {
	return newError(code, message, "", SeverityWarning)
}

// Wrap оборачивает cause с кодом и сообщением
func Wrap(cause error, code ErrorCode, message string) *Error {
	e := New(code, message)
	e.Cause = cause
	return e
}

// InvalidConfiguration некорректный параметр эксперимента или конфигурации
func InvalidConfiguration(field, message string) *Error {
	return NewWithField(CodeInvalidConfiguration, message, field)
}

// DomainError параметр вне области определения формулы
func DomainError(field, message string) *Error {
	return NewWithField(CodeDomainError, message, field)
}

// Intractable пространство исходов больше предела перебора.
// Это не сбой: проверка продолжается без точного значения, поэтому уровень SeverityWarning.
// Размер math.MaxUint64 означает, что подсчёт насытился и настоящий размер не меньше 2^64.
func Intractable(space, ceiling uint64) *Error {
	size := fmt.Sprintf("%d", space)
	if space == math.MaxUint64 {
		size = ">= 2^64"
	}
	return NewWarning(CodeIntractable, fmt.Sprintf("outcome space %s exceeds ceiling %d", size, ceiling)).
		WithDetails("space", space).
		WithDetails("ceiling", ceiling)
}

// WithDetails добавляет пару ключ-значение в Details
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// Is проверяет код ошибки в цепочке
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsIntractable сигнал превышения предела перебора
func IsIntractable(err error) bool {
	return Is(err, CodeIntractable)
}

// Code код ошибки; для ошибок не из этого пакета CodeInternal
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

var ErrNilExperiment = New(CodeNilInput, "experiment is nil")

// ValidationErrors накапливает ошибки нескольких независимых проверок
type ValidationErrors struct {
	Errors []*Error
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

func (v *ValidationErrors) Add(err *Error) {
	v.Errors = append(v.Errors, err)
}

// AddErrorWithField добавляет ошибку, привязанную к параметру
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Add(NewWithField(code, message, field))
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// First первая ошибка или nil
func (v *ValidationErrors) First() error {
	if !v.HasErrors() {
		return nil
	}
	return v.Errors[0]
}

// ErrorMessages сообщения всех ошибок без кодов
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return messages
}

// Err сводит все ошибки в одну с кодом первой; nil, если ошибок нет.
// Поля нарушенных параметров лежат в Details["fields"].
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for _, err := range v.Errors {
		if err.Field != "" {
			fields = append(fields, err.Field)
		}
	}
	return New(v.Errors[0].Code, "validation failed: "+strings.Join(v.ErrorMessages(), "; ")).
		WithDetails("fields", fields)
}
