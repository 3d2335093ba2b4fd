package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleCaptain    UserRole = "CAPTAIN"
	RoleSecretary  UserRole = "SECRETARY"
	RoleTreasurer  UserRole = "TREASURER"
	RoleResident   UserRole = "RESIDENT"
)

// Staff reports whether the role belongs to barangay personnel.
func (r UserRole) Staff() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleCaptain, RoleSecretary, RoleTreasurer:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	BarangayID   string     `db:"barangay_id" json:"barangay_id"`
	ResidentID   *string    `db:"resident_id" json:"resident_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
