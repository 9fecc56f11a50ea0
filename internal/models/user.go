// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Roles lists every role, lowest first.
var Roles = []Role{RoleUser, RoleAuthor, RoleEditor, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAuthor, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

// SocialLinks holds optional profile links.
type SocialLinks struct {
	Website   string `json:"website,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// User is an account. Registration creates role user; only admins change
// Role and IsActive.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"` // Never serialize the hash
	FullName     string      `json:"full_name"`
	Bio          string      `json:"bio"`
	SocialLinks  SocialLinks `json:"social_links"`
	Role         Role        `json:"role"`
	IsActive     bool        `json:"is_active"`
	TOTPSecret   *string     `json:"-"`
	TOTPEnabled  bool        `json:"totp_enabled"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserStats is the aggregate account overview shown to admins.
type UserStats struct {
	TotalUsers    int          `json:"total_users"`
	ActiveUsers   int          `json:"active_users"`
	InactiveUsers int          `json:"inactive_users"`
	NewUsers      int          `json:"new_users"`
	ByRole        map[Role]int `json:"by_role"`
}
