package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of privilege tiers a token can carry.
type Role string

const (
	RoleUser        Role = "user"
	RoleMosqueAdmin Role = "mosque_admin"
	RoleSuperAdmin  Role = "super_admin"
)

// AllRoles lists every role, lowest privilege first.
var AllRoles = []Role{RoleUser, RoleMosqueAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMosqueAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts a stored or transmitted role name. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// RoleSet is an unordered set of roles used by role gates.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}
