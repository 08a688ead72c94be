package models

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

type User struct {
	ID             uint64     `gorm:"primarykey" json:"id"`
	Username       string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email          *string    `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	PasswordHash   string     `gorm:"type:varchar(255);not null" json:"-"`
	Role           Role       `gorm:"type:varchar(20);not null" json:"role"`
	StageAccess    *uint64    `gorm:"index" json:"stage_access,omitempty"`
	ResetTokenHash *string    `gorm:"type:varchar(64);index" json:"-"`
	ResetExpiry    *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Stage *Stage `gorm:"foreignKey:StageAccess" json:"stage,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HomeRoute is where the user lands after login or a rejected request.
func (u *User) HomeRoute() string {
	if u.IsAdmin() {
		return "/admin"
	}
	return "/staff"
}
