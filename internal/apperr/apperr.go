// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr declares the error kinds shared by the access, listing,
// category and storage layers. Producers wrap a sentinel with context using
// fmt.Errorf("%w: ...", ErrX); consumers classify with errors.Is.
package apperr

import "errors"

var (
	// ErrUnauthenticated means the credential is missing, malformed, expired,
	// signed by an unknown or revoked key, or its account no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAccountDisabled means the credential is valid but the account is inactive.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInsufficientPermission is a role or ownership denial.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrInvalidParameter is malformed listing, filter or request input.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotFound means a resource id resolves to nothing.
	ErrNotFound = errors.New("not found")

	// ErrConflictingState covers duplicate unique fields and writes that
	// would break an invariant (a category becoming its own ancestor).
	ErrConflictingState = errors.New("conflicting state")

	// ErrCycleDetected means stored category data contains a parent cycle.
	// It signals corrupted data, not a bad request.
	ErrCycleDetected = errors.New("category cycle detected")
)

// kinds lists every sentinel in taxonomy order.
var kinds = []error{
	ErrUnauthenticated,
	ErrAccountDisabled,
	ErrInsufficientPermission,
	ErrInvalidParameter,
	ErrNotFound,
	ErrConflictingState,
	ErrCycleDetected,
}

// Kind returns the taxonomy sentinel err wraps, or nil when err is not
// classified (an unexpected infrastructure failure).
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
