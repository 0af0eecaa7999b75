package user

import (
	"errors"
	"strings"
)

// Role identifies which end of a tracking session a party is.
type Role string

const (
	RoleRequester Role = "REQUESTER"
	RoleResponder Role = "RESPONDER"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole normalizes (uppercases+trims) and validates a role string.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if role.Valid() {
		return role, nil
	}
	return "", ErrInvalidRole
}

// Valid reports whether role is one of the allowed role constants.
func (role Role) Valid() bool {
	switch role {
	case RoleRequester, RoleResponder:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Role.
func (role Role) String() string {
	return string(role)
}

// Convenience helpers.
func (role Role) IsRequester() bool { return role == RoleRequester }
func (role Role) IsResponder() bool { return role == RoleResponder }
