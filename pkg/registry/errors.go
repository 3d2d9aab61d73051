package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies registry errors for API responses.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "VALIDATION"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeNotEligible       ErrorCode = "NOT_ELIGIBLE"
	CodeInactiveBranch    ErrorCode = "INACTIVE_BRANCH"
	CodeAlreadyArchived   ErrorCode = "ALREADY_ARCHIVED"
	CodeIntegrity         ErrorCode = "INTEGRITY"
	CodeStorage           ErrorCode = "STORAGE"
)

// Error is a classified registry error with a machine-readable code.
// From/To are set for transition errors.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	From    Status    `json:"from,omitempty"`
	To      Status    `json:"to,omitempty"`
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Validationf builds a VALIDATION error.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NOT_FOUND error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds an INVALID_TRANSITION error for from->to.
func InvalidTransition(from, to Status) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		From:    from,
		To:      to,
		Message: fmt.Sprintf("no transition defined from %s to %s", from, to),
	}
}

// NotEligible builds a NOT_ELIGIBLE error for a failed golden precondition.
func NotEligible(current Status, reason string) *Error {
	return &Error{
		Code:    CodeNotEligible,
		From:    current,
		To:      StatusGolden,
		Message: reason,
	}
}

// InactiveBranch builds an INACTIVE_BRANCH error.
func InactiveBranch(branchID string) *Error {
	return &Error{Code: CodeInactiveBranch, Message: fmt.Sprintf("branch %s is not active", branchID)}
}

// AlreadyArchived builds an ALREADY_ARCHIVED error.
func AlreadyArchived(versionID string) *Error {
	return &Error{Code: CodeAlreadyArchived, Message: fmt.Sprintf("version %s is already archived", versionID)}
}

// Integrityf builds an INTEGRITY error.
func Integrityf(format string, args ...any) *Error {
	return &Error{Code: CodeIntegrity, Message: fmt.Sprintf(format, args...)}
}

// Storagef wraps a storage failure.
func Storagef(err error, format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf(format, args...), err: err}
}

// CodeOf returns the error's code, or CodeStorage for unclassified errors.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeStorage
}

// HTTPStatus maps an error to the HTTP status code it should produce.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation, CodeInvalidTransition:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotEligible, CodeInactiveBranch, CodeAlreadyArchived:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
