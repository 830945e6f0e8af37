package auth

// Action names a protected operation.
type Action string

const (
	ActionCreateMosque  Action = "mosque.create"
	ActionCreateEvent   Action = "event.create"
	ActionUpdateEvent   Action = "event.update"
	ActionDeleteEvent   Action = "event.delete"
	ActionCreateBooking Action = "booking.create"
	ActionListBookings  Action = "booking.list_own"
	ActionCancelBooking Action = "booking.cancel"
	ActionViewSelf      Action = "auth.me"
	ActionAssignRole    Action = "user.assign_role"
)

// Scope selects the resource-level check layered after the role gate.
type Scope int

const (
	// ScopeNone: role membership is sufficient.
	ScopeNone Scope = iota
	// ScopeTenant: mosque admins act only inside their assigned mosque.
	ScopeTenant
	// ScopeOwner: only the resource owner acts on it.
	ScopeOwner
)

// Rule is one row of the policy table. super_admin bypasses every Scope.
type Rule struct {
	Roles       RoleSet
	Scope       Scope
	DenyMessage string
}

var everyone = NewRoleSet(AllRoles...)

// Policy is the single source of truth for who may do what.
//
// Event mutation is owner-scoped, not tenant-scoped: a mosque admin cannot edit a
// colleague's event in the same mosque. Only creation checks the tenant.
var Policy = map[Action]Rule{
	ActionCreateMosque: {
		Roles: NewRoleSet(RoleSuperAdmin),
	},
	ActionCreateEvent: {
		Roles:       NewRoleSet(RoleMosqueAdmin, RoleSuperAdmin),
		Scope:       ScopeTenant,
		DenyMessage: "You are not authorized to post events for this mosque.",
	},
	ActionUpdateEvent: {
		Roles:       NewRoleSet(RoleMosqueAdmin, RoleSuperAdmin),
		Scope:       ScopeOwner,
		DenyMessage: "Not authorized to update this event",
	},
	ActionDeleteEvent: {
		Roles:       NewRoleSet(RoleMosqueAdmin, RoleSuperAdmin),
		Scope:       ScopeOwner,
		DenyMessage: "Not authorized to delete this event",
	},
	ActionCreateBooking: {Roles: everyone},
	ActionListBookings:  {Roles: everyone},
	ActionCancelBooking: {
		Roles:       everyone,
		Scope:       ScopeOwner,
		DenyMessage: "Not authorized to cancel this booking",
	},
	ActionViewSelf: {Roles: everyone},
	ActionAssignRole: {
		Roles: NewRoleSet(RoleSuperAdmin),
	},
}

// RuleFor returns the rule for action. Unknown actions get an empty role set, so
// every caller is denied.
func RuleFor(action Action) Rule {
	if r, ok := Policy[action]; ok {
		return r
	}
	return Rule{Roles: RoleSet{}}
}
