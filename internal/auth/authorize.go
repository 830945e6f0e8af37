package auth

import "fmt"

// Resource holds the ownership facts the storage layer supplies for a check.
type Resource struct {
	Owner  string
	Tenant string
}

// RequireRoles is the role gate. A nil identity, or one without a role, is
// unauthenticated rather than forbidden.
func RequireRoles(id *Identity, allowed RoleSet) error {
	if id == nil || id.Role == "" {
		return unauthenticated("Not authorized")
	}
	if !allowed.Contains(id.Role) {
		return forbidden(fmt.Sprintf("Role (%s) is not authorized to access this resource", id.Role))
	}
	return nil
}

// Authorize runs the role gate for action.
func Authorize(id *Identity, action Action) error {
	return RequireRoles(id, RuleFor(action).Roles)
}

// AuthorizeResource runs the scope check for action against res. It assumes the role
// gate already passed and re-applies it so it is safe to call on its own.
func AuthorizeResource(id *Identity, action Action, res Resource) error {
	rule := RuleFor(action)
	if err := RequireRoles(id, rule.Roles); err != nil {
		return err
	}
	if id.IsSuperAdmin() {
		return nil
	}
	switch rule.Scope {
	case ScopeNone:
		return nil
	case ScopeTenant:
		if id.Role == RoleMosqueAdmin && id.HasTenant() && id.AssignedMosque == res.Tenant {
			return nil
		}
	case ScopeOwner:
		if res.Owner != "" && id.ID == res.Owner {
			return nil
		}
	}
	return forbidden(rule.DenyMessage)
}
