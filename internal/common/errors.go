package common

import (
	"errors"
	"net/http"
)

// Canonical error codes surfaced to API clients. Validation and stock errors
// are produced locally without touching the database; remote errors pass the
// underlying failure through verbatim.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeCheckoutInProgress = "CHECKOUT_IN_PROGRESS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError builds a 400 AppError for a locally rejected payload.
func ValidationError(message string, details any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest, Details: details}
}

// InsufficientStock builds the advisory stock rejection for cart mutations
// and the authoritative one raised by the order-creation transaction.
func InsufficientStock(message string) *AppError {
	return &AppError{Code: CodeInsufficientStock, Message: message, HTTPStatus: http.StatusConflict}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
