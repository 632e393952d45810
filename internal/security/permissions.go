package security

import "github.com/IntelliTect/Coalesce-sub010/internal/model"

// IsReadAllowed: deny_all wins; any action open to anonymous users opens
// reads too; then roles; then any authenticated user.
func IsReadAllowed(t *model.Type, p Principal) bool {
	perm := t.Security.Read
	if perm != nil && perm.DenyAll {
		return false
	}
	if t.Security.AllowAnonymousAny() {
		return true
	}
	if perm.HasRoles() {
		return p.isInAnyRole(perm.Roles)
	}
	return p.Authenticated
}

func IsCreateAllowed(t *model.Type, p Principal) bool {
	return isMutationAllowed(t.Security.Create, p)
}

func IsEditAllowed(t *model.Type, p Principal) bool {
	return isMutationAllowed(t.Security.Edit, p)
}

func IsDeleteAllowed(t *model.Type, p Principal) bool {
	return isMutationAllowed(t.Security.Delete, p)
}

func isMutationAllowed(perm *model.Permission, p Principal) bool {
	if perm != nil {
		switch {
		case perm.DenyAll:
			return false
		case perm.AllowAnonymous:
			return true
		case perm.HasRoles():
			return p.isInAnyRole(perm.Roles)
		}
	}
	return p.Authenticated
}
