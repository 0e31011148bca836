package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		role  Role
		valid bool
	}{
		{"Admin", RoleAdmin, true},
		{"Treasurer", RoleTreasurer, true},
		{"Leader", RoleLeader, true},
		{"Parent", RoleParent, true},
		{"Scout", RoleScout, true},
		{"Unknown", Role("moderator"), false},
		{"Empty", Role(""), false},
		{"Uppercase", Role("ADMIN"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v for role %q", got, tt.valid, tt.role)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  Treasurer ")
	if err != nil || r != RoleTreasurer {
		t.Fatalf("ParseRole() = %q, %v", r, err)
	}
	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRole_HasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermissionMembersManage, true},
		{RoleTreasurer, PermissionMembersManage, false},
		{RoleTreasurer, PermissionPaymentsCollect, true},
		{RoleTreasurer, PermissionFinanceSettings, true},
		{RoleLeader, PermissionRosterSync, true},
		{RoleLeader, PermissionFinanceWrite, false},
		{RoleParent, PermissionPaymentsMake, true},
		{RoleParent, PermissionFinanceRead, false},
		{RoleScout, PermissionRosterRead, false},
		{RoleScout, PermissionAdvancementRead, true},
		{Role("ghost"), PermissionUnitRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"_"+tt.perm.String(), func(t *testing.T) {
			if got := tt.role.HasPermission(tt.perm); got != tt.want {
				t.Errorf("HasPermission(%s) = %v, want %v", tt.perm, got, tt.want)
			}
		})
	}
}

func TestAdminHasEveryPermission(t *testing.T) {
	for _, p := range AllPermissions() {
		if !RoleAdmin.HasPermission(p) {
			t.Errorf("admin is missing %s", p)
		}
	}
}

func TestMembership_Can_InactiveGrantsNothing(t *testing.T) {
	m := &Membership{Role: RoleAdmin, Status: MembershipInactive}
	if m.Can(PermissionUnitRead) {
		t.Error("inactive membership should not grant permissions")
	}
}

func TestCheckRoleChange_LastAdminGuard(t *testing.T) {
	admin := &Membership{ID: 1, ProfileID: 10, Role: RoleAdmin, Status: MembershipActive}
	otherAdmin := &Membership{ID: 2, ProfileID: 11, Role: RoleAdmin, Status: MembershipActive}
	leader := &Membership{ID: 3, ProfileID: 12, Role: RoleLeader, Status: MembershipActive}

	tests := []struct {
		name         string
		actor        *Membership
		target       *Membership
		newRole      Role
		activeAdmins int
		wantErr      error
	}{
		{"Sole admin demotes self", admin, admin, RoleLeader, 1, ErrLastAdmin},
		{"Sole admin keeps admin", admin, admin, RoleAdmin, 1, nil},
		{"One of two admins demotes self", admin, admin, RoleTreasurer, 2, nil},
		{"Admin demotes other admin while two exist", admin, otherAdmin, RoleParent, 2, nil},
		{"Admin promotes leader", admin, leader, RoleAdmin, 1, nil},
		{"Leader cannot change roles", leader, admin, RoleLeader, 2, ErrForbidden},
		{"Nil actor", nil, leader, RoleScout, 1, ErrForbidden},
		{"Invalid role", admin, leader, Role("boss"), 1, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRoleChange(tt.actor, tt.target, tt.newRole, tt.activeAdmins)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckRemoval(t *testing.T) {
	admin := &Membership{ProfileID: 1, Role: RoleAdmin, Status: MembershipActive}
	parent := &Membership{ProfileID: 2, Role: RoleParent, Status: MembershipActive}
	other := &Membership{ProfileID: 3, Role: RoleParent, Status: MembershipActive}

	tests := []struct {
		name         string
		actor        *Membership
		target       *Membership
		activeAdmins int
		wantErr      error
	}{
		{"Parent leaves", parent, parent, 1, nil},
		{"Parent removes other", parent, other, 1, ErrForbidden},
		{"Admin removes parent", admin, parent, 1, nil},
		{"Last admin leaves", admin, admin, 1, ErrLastAdmin},
		{"Admin leaves with another admin", admin, admin, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRemoval(tt.actor, tt.target, tt.activeAdmins)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckRemoval() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInvite_IsUsable(t *testing.T) {
	now := time.Now()
	accepted := now.Add(-time.Minute)

	tests := []struct {
		name   string
		invite Invite
		want   bool
	}{
		{"Fresh", Invite{ExpiresAt: now.Add(time.Hour)}, true},
		{"Expired", Invite{ExpiresAt: now.Add(-time.Hour)}, false},
		{"Accepted", Invite{ExpiresAt: now.Add(time.Hour), AcceptedAt: &accepted}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.invite.IsUsable(now); got != tt.want {
				t.Errorf("IsUsable() = %v, want %v", got, tt.want)
			}
		})
	}
}
