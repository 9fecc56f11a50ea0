// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import (
	"fmt"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
)

// Decision is the outcome of Decide. Reason is one of the apperr sentinels
// when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  error
}

// Err returns nil for an allow and a wrapped reason for a deny.
func (d Decision) Err(a Action) error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", d.Reason, a)
}

func allow() Decision { return Decision{Allowed: true} }
func deny(reason error) Decision { return Decision{Reason: reason} }

// Decide evaluates action for principal p. ownerID is the resource's owning
// account when the action targets one; pass nil otherwise. The function has
// no side effects: callers log and mutate after an allow.
//
// Order: absent principal, disabled account, role threshold, ownership
// fallback. A role that meets the threshold never consults ownership.
func Decide(p *Principal, a Action, ownerID *uuid.UUID) Decision {
	if p == nil {
		return deny(apperr.ErrUnauthenticated)
	}
	if !p.active {
		return deny(apperr.ErrAccountDisabled)
	}

	rule, ok := catalog[a]
	if !ok {
		return deny(apperr.ErrInsufficientPermission)
	}

	if MeetsMinimum(p.role, rule.MinRole) {
		return allow()
	}

	if rule.OwnerFallback && ownerID != nil && Owns(*p, *ownerID) {
		return allow()
	}

	return deny(apperr.ErrInsufficientPermission)
}

// Check is Decide followed by Decision.Err.
func Check(p *Principal, a Action, ownerID *uuid.UUID) error {
	return Decide(p, a, ownerID).Err(a)
}
