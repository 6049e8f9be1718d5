package domain

type PermissionCode string

const (
	PermUserRead       PermissionCode = "USER_READ"
	PermUserUpdate     PermissionCode = "USER_UPDATE"
	PermUserManage     PermissionCode = "USER_MANAGE"
	PermPostCreate     PermissionCode = "POST_CREATE"
	PermPostUpdate     PermissionCode = "POST_UPDATE"
	PermPostDelete     PermissionCode = "POST_DELETE"
	PermPostManage     PermissionCode = "POST_MANAGE"
	PermLocationView   PermissionCode = "LOCATION_VIEW"
	PermLocationCreate PermissionCode = "LOCATION_CREATE"
	PermLocationManage PermissionCode = "LOCATION_MANAGE"
)

// Role names known to the seeder.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

var permissionCodes = []PermissionCode{
	PermUserRead,
	PermUserUpdate,
	PermUserManage,
	PermPostCreate,
	PermPostUpdate,
	PermPostDelete,
	PermPostManage,
	PermLocationView,
	PermLocationCreate,
	PermLocationManage,
}

// PermissionCodes returns the closed set of capability tags.
func PermissionCodes() []PermissionCode {
	out := make([]PermissionCode, len(permissionCodes))
	copy(out, permissionCodes)
	return out
}

func (p PermissionCode) Valid() bool {
	for _, c := range permissionCodes {
		if c == p {
			return true
		}
	}
	return false
}
