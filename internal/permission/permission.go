// Package permission holds the static role to permission table and the
// role hierarchy. Everything here is pure and safe for concurrent use.
package permission

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type Permission string

const (
	ManageOrganization         Permission = "manage_organization"
	UpdateOrganizationSettings Permission = "update_organization_settings"
	DeleteOrganization         Permission = "delete_organization"

	ViewMembers       Permission = "view_members"
	InviteMembers     Permission = "invite_members"
	RemoveMembers     Permission = "remove_members"
	UpdateMemberRoles Permission = "update_member_roles"

	ManageBilling      Permission = "manage_billing"
	ViewInvoices       Permission = "view_invoices"
	UpdateSubscription Permission = "update_subscription"

	ManageAPIKeys Permission = "manage_api_keys"
	ViewAPIKeys   Permission = "view_api_keys"

	ManageCustomDomain    Permission = "manage_custom_domain"
	UpdateBranding        Permission = "update_branding"
	ConfigureIntegrations Permission = "configure_integrations"

	ViewAnalytics Permission = "view_analytics"
	ExportData    Permission = "export_data"
	ViewAuditLogs Permission = "view_audit_logs"

	AccessDashboard Permission = "access_dashboard"
	AccessAPI       Permission = "access_api"
)

var (
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidPermission = errors.New("invalid_permission")
)

var allPermissions = []Permission{
	ManageOrganization, UpdateOrganizationSettings, DeleteOrganization,
	ViewMembers, InviteMembers, RemoveMembers, UpdateMemberRoles,
	ManageBilling, ViewInvoices, UpdateSubscription,
	ManageAPIKeys, ViewAPIKeys,
	ManageCustomDomain, UpdateBranding, ConfigureIntegrations,
	ViewAnalytics, ExportData, ViewAuditLogs,
	AccessDashboard, AccessAPI,
}

// roleOrder lists roles from most to least privileged.
var roleOrder = []Role{RoleOwner, RoleAdmin, RoleMember}

type permissionSet map[Permission]struct{}

var (
	table     map[Role]permissionSet
	hierarchy map[Role]map[Role]struct{}
)

func init() {
	admin := []Permission{
		AccessDashboard, AccessAPI,
		ViewMembers, InviteMembers, RemoveMembers,
		ViewAnalytics, ViewAuditLogs, ViewInvoices,
		UpdateOrganizationSettings, ManageCustomDomain, UpdateBranding, ConfigureIntegrations,
		ViewAPIKeys, ExportData,
	}
	member := []Permission{
		AccessDashboard, AccessAPI,
		ViewMembers, ViewAnalytics,
	}

	table = map[Role]permissionSet{
		RoleOwner:  newSet(allPermissions),
		RoleAdmin:  newSet(admin),
		RoleMember: newSet(member),
	}

	hierarchy = map[Role]map[Role]struct{}{
		RoleOwner:  {RoleOwner: {}, RoleAdmin: {}, RoleMember: {}},
		RoleAdmin:  {RoleAdmin: {}, RoleMember: {}},
		RoleMember: {RoleMember: {}},
	}
}

func newSet(perms []Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := table[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// ParsePermission normalizes and validates a permission name.
func ParsePermission(raw string) (Permission, error) {
	perm := Permission(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := table[RoleOwner][perm]; !ok {
		return "", ErrInvalidPermission
	}
	return perm, nil
}

func (r Role) Valid() bool {
	_, ok := table[r]
	return ok
}

func (r Role) String() string { return string(r) }

func (p Permission) String() string { return string(p) }

// AllPermissions returns a copy of the full permission enumeration.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// Roles returns every role from most to least privileged.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// PermissionsFor returns the permissions granted to role in enumeration order.
func PermissionsFor(role Role) []Permission {
	set := table[role]
	out := make([]Permission, 0, len(set))
	for _, p := range allPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func HasPermission(role Role, perm Permission) bool {
	_, ok := table[role][perm]
	return ok
}

func HasAllPermissions(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

func HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// IsRoleSuperiorTo reports whether other sits within role's hierarchy. A role
// is superior to itself.
func IsRoleSuperiorTo(role, other Role) bool {
	_, ok := hierarchy[role][other]
	return ok
}

// CanModifyRole reports whether actor may change the role of a member that
// currently holds target. Equal roles may not modify each other.
func CanModifyRole(actor, target Role) bool {
	return actor != target && IsRoleSuperiorTo(actor, target)
}

// AssignableRoles returns the roles actor may grant. Ownership is never
// assignable.
func AssignableRoles(role Role) []Role {
	out := make([]Role, 0, len(roleOrder))
	for _, r := range roleOrder {
		if r == RoleOwner {
			continue
		}
		if IsRoleSuperiorTo(role, r) {
			out = append(out, r)
		}
	}
	return out
}

// CanAssignRole reports whether target is among actor's assignable roles.
func CanAssignRole(actor, target Role) bool {
	for _, r := range AssignableRoles(actor) {
		if r == target {
			return true
		}
	}
	return false
}

// formatList renders a permission list as "[a, b]".
func formatList(perms []Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}
