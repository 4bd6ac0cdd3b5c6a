package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerHasEveryPermission(t *testing.T) {
	require.True(t, HasAllPermissions(RoleOwner, AllPermissions()...))
	require.Equal(t, AllPermissions(), PermissionsFor(RoleOwner))
}

func TestStaticTable(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, InviteMembers, true},
		{RoleAdmin, ManageCustomDomain, true},
		{RoleAdmin, ManageBilling, false},
		{RoleAdmin, UpdateMemberRoles, false},
		{RoleAdmin, DeleteOrganization, false},
		{RoleMember, AccessDashboard, true},
		{RoleMember, ViewMembers, true},
		{RoleMember, InviteMembers, false},
		{RoleMember, ViewAuditLogs, false},
		{Role("guest"), AccessDashboard, false},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ {
			assert.Equal(t, tc.want, HasPermission(tc.role, tc.perm), "%s/%s", tc.role, tc.perm)
		}
	}
	assert.Len(t, PermissionsFor(RoleAdmin), 14)
	assert.Len(t, PermissionsFor(RoleMember), 4)
}

func TestHasAnyAndAllEdgeCases(t *testing.T) {
	assert.True(t, HasAllPermissions(RoleMember))
	assert.False(t, HasAnyPermission(RoleOwner))
	assert.True(t, HasAnyPermission(RoleMember, ManageBilling, ViewMembers))
	assert.False(t, HasAllPermissions(RoleMember, ManageBilling, ViewMembers))
}

func TestRoleHierarchy(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, IsRoleSuperiorTo(r, r))
		assert.False(t, CanModifyRole(r, r), "role %s must not modify itself", r)
	}
	assert.True(t, IsRoleSuperiorTo(RoleOwner, RoleMember))
	assert.False(t, IsRoleSuperiorTo(RoleMember, RoleAdmin))
	assert.True(t, CanModifyRole(RoleOwner, RoleAdmin))
	assert.True(t, CanModifyRole(RoleAdmin, RoleMember))
	assert.False(t, CanModifyRole(RoleAdmin, RoleOwner))
	assert.False(t, IsRoleSuperiorTo(Role("guest"), RoleMember))
}

func TestAssignableRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleMember}, AssignableRoles(RoleMember))
	assert.Equal(t, []Role{RoleAdmin, RoleMember}, AssignableRoles(RoleOwner))
	assert.NotContains(t, AssignableRoles(RoleOwner), RoleOwner)
	assert.Equal(t, []Role{RoleAdmin, RoleMember}, AssignableRoles(RoleAdmin))
	assert.True(t, CanAssignRole(RoleAdmin, RoleMember))
	assert.False(t, CanAssignRole(RoleOwner, RoleOwner))
}

func TestAssertions(t *testing.T) {
	require.NoError(t, Assert(RoleOwner, ManageBilling))

	err := Assert(RoleMember, ManageBilling)
	require.True(t, errors.Is(err, ErrPermissionDenied))
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ManageBilling, denied.Permission)
	assert.Equal(t, "permission denied: manage_billing is required", err.Error())

	err = AssertAll(RoleAdmin, ViewMembers, ManageBilling)
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "permission denied: all of [view_members, manage_billing] are required", err.Error())

	err = AssertAny(RoleMember, ManageBilling, ExportData)
	require.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, "permission denied: at least one of [manage_billing, export_data] is required", err.Error())

	require.NoError(t, AssertAny(RoleMember, ManageBilling, ViewMembers))
}

func TestParse(t *testing.T) {
	role, err := ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)

	perm, err := ParsePermission("MANAGE_BILLING")
	require.NoError(t, err)
	assert.Equal(t, ManageBilling, perm)

	_, err = ParsePermission("fly")
	assert.ErrorIs(t, err, ErrInvalidPermission)
}
