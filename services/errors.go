package services

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorKind classifies a ServiceError for the HTTP layer
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// HTTPStatus maps the kind to its response status. Conflicts answer 400 to
// match the client's expectations.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError is an error with a message that is safe to return to clients
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Validation returns a 400 error for missing or invalid input
func Validation(message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: message}
}

// NotFound returns a 404 error
func NotFound(message string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: message}
}

// Conflict returns an error for uniqueness or capacity violations
func Conflict(message string) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: message}
}

// Forbidden returns a 403 error
func Forbidden(message string) *ServiceError {
	return &ServiceError{Kind: KindForbidden, Message: message}
}

// Internal wraps an unexpected error; only the generic message reaches clients
func Internal(err error) *ServiceError {
	return &ServiceError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

var (
	ErrCapacityExceeded = Conflict("Room is at full capacity")
	ErrRoomNotFound     = NotFound("Room not found")
	ErrRoomNotEmpty     = Conflict("Cannot delete room with allocated students")
	ErrStudentNotFound  = NotFound("Student not found")
	ErrUserNotFound     = NotFound("User not found")
	ErrAlreadyAssigned  = Conflict("Student is already allocated to another room")
	ErrCapacityBelowUse = Conflict("Capacity cannot be lower than current occupancy")
	ErrDuplicateRoom    = Conflict("Room number already exists")
	ErrStudentChanged   = Conflict("Student was modified by another request, please retry")
)

// IsDuplicateKey reports whether err is a unique constraint violation.
// TranslateError covers the GORM drivers; the message check covers drivers
// that do not translate.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

// AsServiceError converts any error into a ServiceError, wrapping unknown
// errors as Internal
func AsServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return Internal(err)
}
