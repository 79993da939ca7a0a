package essay

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange indicates malformed or out-of-bounds anchors.
	ErrInvalidRange = errors.New("essay: invalid range")
	// ErrNotFound indicates an unknown essay or annotation identifier.
	ErrNotFound = errors.New("essay: not found")
	// ErrForbidden indicates a role not permitted to perform the action.
	ErrForbidden = errors.New("essay: forbidden")
	// ErrConflict indicates an optimistic version mismatch during an accept.
	ErrConflict = errors.New("essay: version conflict")
)

// ServiceError carries a stable machine-readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the "<operation>.<reason>" error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
