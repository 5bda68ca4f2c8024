package domain

import "time"

type Role struct {
	ID          string
	Name        string
	Permissions []string // Parsed from space-delimited storage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission codes the auth core gates on. Roles may carry others; the
// core only ever checks these.
const (
	PermSecurityRead = "security:read"
	PermUsersManage  = "users:manage"
	PermWebsiteEdit  = "website:edit"
)

// HasPermission reports whether the role carries the given code.
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p == code {
			return true
		}
	}
	return false
}
