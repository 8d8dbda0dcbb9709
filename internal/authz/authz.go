// Package authz decides whether a verified identity may perform an action.
// Roles form a flat two-level hierarchy; the superadmin delete protection is
// a standing invariant, not a permission check.
package authz

import "github.com/contactdeck/be-contacts-admin/internal/apperr"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// Satisfies reports whether the role meets the required level. Superadmin
// satisfies any admin-level requirement; admin does not satisfy superadmin.
func (r Role) Satisfies(required Role) bool {
	if r == RoleSuperadmin {
		return true
	}
	return r == required
}

// Authorize returns Forbidden when the identity's role does not satisfy the
// requirement.
func Authorize(role Role, required Role) error {
	if !role.Satisfies(required) {
		return apperr.Forbidden("insufficient role")
	}
	return nil
}

// CheckDeleteUser enforces the standing invariant that a superadmin record
// can never be deleted, regardless of who asks.
func CheckDeleteUser(targetRole Role) error {
	if targetRole == RoleSuperadmin {
		return apperr.Forbidden("cannot delete superadmin")
	}
	return nil
}
