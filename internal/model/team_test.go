package model

import "testing"

func TestRoleOrdering(t *testing.T) {
	ordered := []Role{RoleViewer, RoleEditor, RoleAdmin, RoleOwner}

	for i := 1; i < len(ordered); i++ {
		lower, higher := ordered[i-1], ordered[i]
		if !higher.AtLeast(lower) {
			t.Errorf("%s should be at least %s", higher, lower)
		}
		if lower.AtLeast(higher) {
			t.Errorf("%s should not be at least %s", lower, higher)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleViewer, RoleEditor, RoleAdmin, RoleOwner} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	for _, r := range []Role{"", "superuser", "OWNER"} {
		if r.Valid() {
			t.Errorf("%q should not be valid", r)
		}
	}
}

func TestRoleCanManageCategories(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleViewer, false},
		{RoleEditor, true},
		{RoleAdmin, true},
		{RoleOwner, true},
		{Role("corrupted"), false},
	}

	for _, tt := range tests {
		if got := tt.role.CanManageCategories(); got != tt.want {
			t.Errorf("%s.CanManageCategories() = %v, want %v", tt.role, got, tt.want)
		}
	}
}
