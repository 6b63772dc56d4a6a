package models

import "strings"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Role links an identity to its single role row. A missing row reads as
// member everywhere; it is never an error.
type Role struct {
	IdentityID string `json:"user_id"`
	Role       string `json:"role"`
}

// NormalizeRole collapses any value that is not exactly admin
// (case-insensitive) to member.
func NormalizeRole(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), RoleAdmin) {
		return RoleAdmin
	}
	return RoleMember
}
