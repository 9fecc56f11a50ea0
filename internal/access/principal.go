// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import (
	"github.com/google/uuid"

	"cmsmini/internal/models"
)

// Principal is the acting identity of one request. It is built by the
// identity verifier from the stored account and cannot be modified, so
// nothing read from a request body can change who is acting or at what role.
type Principal struct {
	id     uuid.UUID
	role   models.Role
	active bool
}

// NewPrincipal builds a principal from a resolved account.
func NewPrincipal(id uuid.UUID, role models.Role, active bool) Principal {
	return Principal{id: id, role: role, active: active}
}

// PrincipalFor builds a principal from a stored user.
func PrincipalFor(u *models.User) Principal {
	return NewPrincipal(u.ID, u.Role, u.IsActive)
}

func (p Principal) ID() uuid.UUID { return p.id }
func (p Principal) Role() models.Role { return p.role }
func (p Principal) Active() bool { return p.active }

// Owns reports whether the principal is the owner identified by ownerID.
func Owns(p Principal, ownerID uuid.UUID) bool {
	return ownerID != uuid.Nil && p.id == ownerID
}
