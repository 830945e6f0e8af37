package auth

import (
	"context"
	"testing"
)

func TestRequireRoles(t *testing.T) {
	admins := NewRoleSet(RoleMosqueAdmin, RoleSuperAdmin)

	if err := RequireRoles(&Identity{ID: "u1", Role: RoleMosqueAdmin}, admins); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}

	err := RequireRoles(&Identity{ID: "u1", Role: RoleUser}, admins)
	d, ok := AsDenial(err)
	if !ok || d.Kind != DenyForbidden {
		t.Fatalf("expected forbidden denial, got %v", err)
	}
	if d.Message != "Role (user) is not authorized to access this resource" {
		t.Fatalf("unexpected message: %q", d.Message)
	}

	for name, id := range map[string]*Identity{"nil": nil, "no role": {ID: "u1"}} {
		d, ok := AsDenial(RequireRoles(id, admins))
		if !ok || d.Kind != DenyUnauthenticated || d.Message != "Not authorized" {
			t.Fatalf("%s: expected unauthenticated denial, got %+v", name, d)
		}
	}
}

func TestAuthorizeCreateMosqueSuperAdminOnly(t *testing.T) {
	for _, role := range AllRoles {
		err := Authorize(&Identity{ID: "u", Role: role}, ActionCreateMosque)
		if role == RoleSuperAdmin && err != nil {
			t.Fatalf("super admin denied: %v", err)
		}
		if role != RoleSuperAdmin && err == nil {
			t.Fatalf("role %s allowed to create mosque", role)
		}
	}
}

func TestAuthorizeEventCreateTenantScope(t *testing.T) {
	const msg = "You are not authorized to post events for this mosque."
	cases := []struct {
		name    string
		id      Identity
		mosque  string
		allowed bool
	}{
		{"admin own mosque", Identity{ID: "u1", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, "m1", true},
		{"admin other mosque", Identity{ID: "u1", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, "m2", false},
		{"admin without tenant", Identity{ID: "u1", Role: RoleMosqueAdmin}, "m1", false},
		{"admin without tenant empty target", Identity{ID: "u1", Role: RoleMosqueAdmin}, "", false},
		{"super admin anywhere", Identity{ID: "u2", Role: RoleSuperAdmin}, "m2", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeResource(&tc.id, ActionCreateEvent, Resource{Tenant: tc.mosque})
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			d, ok := AsDenial(err)
			if !ok || d.Kind != DenyForbidden || d.Message != msg {
				t.Fatalf("expected tenant denial, got %v", err)
			}
		})
	}
}

func TestAuthorizeEventMutationOwnerScope(t *testing.T) {
	event := Resource{Owner: "u2", Tenant: "m1"}
	cases := []struct {
		name    string
		id      Identity
		action  Action
		allowed bool
		message string
	}{
		{"organiser updates", Identity{ID: "u2", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, ActionUpdateEvent, true, ""},
		{"same mosque colleague updates", Identity{ID: "u1", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, ActionUpdateEvent, false, "Not authorized to update this event"},
		{"same mosque colleague deletes", Identity{ID: "u1", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, ActionDeleteEvent, false, "Not authorized to delete this event"},
		{"super admin deletes", Identity{ID: "root", Role: RoleSuperAdmin}, ActionDeleteEvent, true, ""},
		{"user who organised still gated by role", Identity{ID: "u2", Role: RoleUser}, ActionDeleteEvent, false, "Role (user) is not authorized to access this resource"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeResource(&tc.id, tc.action, event)
			if tc.allowed {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			d, ok := AsDenial(err)
			if !ok || d.Kind != DenyForbidden || d.Message != tc.message {
				t.Fatalf("expected %q, got %v", tc.message, err)
			}
		})
	}
}

func TestAuthorizeBookingCancel(t *testing.T) {
	booking := Resource{Owner: "u1"}
	if err := AuthorizeResource(&Identity{ID: "u1", Role: RoleUser}, ActionCancelBooking, booking); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := AuthorizeResource(&Identity{ID: "u9", Role: RoleMosqueAdmin, AssignedMosque: "m1"}, ActionCancelBooking, booking); err == nil {
		t.Fatalf("non-owner admin allowed")
	}
	if err := AuthorizeResource(&Identity{ID: "root", Role: RoleSuperAdmin}, ActionCancelBooking, booking); err != nil {
		t.Fatalf("super admin denied: %v", err)
	}
	if err := AuthorizeResource(&Identity{ID: "u2", Role: RoleUser}, ActionCancelBooking, Resource{}); err == nil {
		t.Fatalf("ownerless resource must not match an identity")
	}
}

func TestUnknownActionDeniesEveryone(t *testing.T) {
	for _, role := range AllRoles {
		if err := Authorize(&Identity{ID: "u", Role: role}, Action("unknown")); err == nil {
			t.Fatalf("role %s allowed on unknown action", role)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("unexpected identity in empty context")
	}
	want := Identity{ID: "u7", Role: RoleMosqueAdmin, AssignedMosque: "m3"}
	got, ok := IdentityFromContext(ContextWithIdentity(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("unexpected identity: %+v ok=%v", got, ok)
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range AllRoles {
		got, err := ParseRole(string(role))
		if err != nil || got != role {
			t.Fatalf("ParseRole(%q) = %q, %v", role, got, err)
		}
	}
	if _, err := ParseRole("Super_Admin"); err == nil {
		t.Fatalf("expected case-sensitive match")
	}
}
