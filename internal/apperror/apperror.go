package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrDuplicate marks a scoped name-uniqueness violation (another active
	// category with the same name already exists in the same scope). It is
	// distinct from ErrConflict because the API maps it to 400, not 409 —
	// from the client's point of view it's bad input, not a lost race.
	ErrDuplicate = errors.New("duplicate name")

	// ErrProtected marks an attempt to delete a resource the system refuses
	// to delete for anyone — currently only the reserved Uncategorized
	// category. Deliberately distinct from ErrForbidden: the caller may have
	// full permission and still get this.
	ErrProtected = errors.New("protected resource")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// DuplicateName returns an AppError for a name already taken within a scope.
// HTTP handlers map this to 400 Bad Request.
func DuplicateName(resource, name string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("a %s named %q already exists in this scope", resource, name),
		Field:   "name",
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Protected returns an AppError for a resource that can never be deleted.
// HTTP handlers map this to 403 Forbidden, with a distinct error code so
// clients can tell it apart from a permission failure.
func Protected(message string) *AppError {
	return &AppError{
		Err:     ErrProtected,
		Message: message,
	}
}
