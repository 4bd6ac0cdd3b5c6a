package permission

import (
	"errors"
	"fmt"
)

var ErrPermissionDenied = errors.New("permission_denied")

type Mode string

const (
	ModeSingle Mode = "single"
	ModeAll    Mode = "all"
	ModeAny    Mode = "any"
)

// DeniedError names the permission (or set of permissions) that was missing.
type DeniedError struct {
	Role        Role
	Permission  Permission
	Permissions []Permission
	Mode        Mode
}

func (e *DeniedError) Error() string {
	switch e.Mode {
	case ModeAll:
		return fmt.Sprintf("permission denied: all of %s are required", formatList(e.Permissions))
	case ModeAny:
		return fmt.Sprintf("permission denied: at least one of %s is required", formatList(e.Permissions))
	default:
		return fmt.Sprintf("permission denied: %s is required", e.Permission)
	}
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func Assert(role Role, perm Permission) error {
	if HasPermission(role, perm) {
		return nil
	}
	return &DeniedError{Role: role, Permission: perm, Permissions: []Permission{perm}, Mode: ModeSingle}
}

// AssertAll fails on the first missing permission, reporting the whole set.
func AssertAll(role Role, perms ...Permission) error {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return &DeniedError{Role: role, Permission: p, Permissions: perms, Mode: ModeAll}
		}
	}
	return nil
}

func AssertAny(role Role, perms ...Permission) error {
	if HasAnyPermission(role, perms...) {
		return nil
	}
	var first Permission
	if len(perms) > 0 {
		first = perms[0]
	}
	return &DeniedError{Role: role, Permission: first, Permissions: perms, Mode: ModeAny}
}
