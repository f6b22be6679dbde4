package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an application error
type ErrorCode int

const (
	ErrValidation ErrorCode = iota + 1000
	ErrPastDate
	ErrNotFound
	ErrSlotUnavailable
	ErrPatientDoubleBooked
	ErrInvalidState
	ErrConflict
	ErrStorage
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// IsCode reports whether err is an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error constructors
func Validation(message string) *AppError {
	return &AppError{Code: ErrValidation, Message: message}
}

func PastDate(message string) *AppError {
	return &AppError{Code: ErrPastDate, Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Code: ErrNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func SlotUnavailable(message string) *AppError {
	return &AppError{Code: ErrSlotUnavailable, Message: message}
}

func PatientDoubleBooked() *AppError {
	return &AppError{Code: ErrPatientDoubleBooked, Message: "patient already has an appointment at this time"}
}

func InvalidState(message string) *AppError {
	return &AppError{Code: ErrInvalidState, Message: message}
}

func Conflict(message string) *AppError {
	return &AppError{Code: ErrConflict, Message: message}
}

func Storage(err error) *AppError {
	return &AppError{Code: ErrStorage, Message: "storage error", Err: err}
}
