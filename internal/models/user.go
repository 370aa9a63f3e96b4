// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a user's primary permission role.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleManager   Role = "MANAGER"
	RoleEditor    Role = "EDITOR"
	RoleLegal     Role = "LEGAL"
	RoleCrowd     Role = "CROWD"
	RoleRequester Role = "REQUESTER"
	// RoleGuest is assigned when no valid session is present. It satisfies
	// no non-trivial permission set.
	RoleGuest Role = "GUEST"
)

// User represents an account in the DocFlow application.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"unique;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);not null;default:'REQUESTER';index" json:"role"`
	Team     string `gorm:"size:120" json:"team"`
	// ExtraRoles grants the union of permissions of the listed roles on top
	// of the primary role.
	ExtraRoles []Role         `gorm:"serializer:json" json:"extra_roles"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
