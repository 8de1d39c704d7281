package models

const (
	// SuperAdmin satisfies every role check.
	SuperAdmin = "admin"
	Doctor     = "doctor"
	Viewer     = "viewer"
)

// AllPermissions is the wildcard permission granted to the super admin role.
const AllPermissions = "*:*:*"

type Role struct {
	ID              int64    `json:"id"`
	RoleName        string   `json:"role"`
	RoleDescription string   `json:"description"`
	Permissions     []string `json:"permissions"`
}
