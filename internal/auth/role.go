package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies which side of the consulting relationship a user acts on.
type Role string

const (
	// RoleStudent marks an applicant account.
	RoleStudent Role = "student"
	// RoleConsultant marks a consultant account.
	RoleConsultant Role = "consultant"
)

// ErrInvalidRole indicates that a role value is not one of the known roles.
var ErrInvalidRole = errors.New("auth: invalid role")

// ParseRole validates raw input and returns a Role.
func ParseRole(rawInput string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(RoleStudent):
		return RoleStudent, nil
	case string(RoleConsultant):
		return RoleConsultant, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, rawInput)
	}
}

// String returns the underlying role value.
func (r Role) String() string {
	return string(r)
}

// Principal is the authenticated caller supplied to every protected operation.
type Principal struct {
	UserID string
	Role   Role
}
