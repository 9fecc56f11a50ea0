// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"fmt"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

// CheckParent validates moving category id under parentID, given every
// stored category. A nil parentID (move to root) is always valid.
//
// It fails with ErrInvalidParameter when the parent does not exist, with
// ErrConflictingState when the category would become its own ancestor, and
// with ErrCycleDetected when the stored ancestry of parentID already loops.
func CheckParent(flat []models.Category, id uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return fmt.Errorf("%w: category cannot be its own parent", apperr.ErrConflictingState)
	}

	parents := make(map[uuid.UUID]*uuid.UUID, len(flat))
	for _, c := range flat {
		if _, dup := parents[c.ID]; !dup {
			parents[c.ID] = c.ParentID
		}
	}

	if _, ok := parents[*parentID]; !ok {
		return fmt.Errorf("%w: parent category %s does not exist", apperr.ErrInvalidParameter, *parentID)
	}

	seen := make(map[uuid.UUID]bool, len(parents))
	for cur := parentID; cur != nil; {
		if *cur == id {
			return fmt.Errorf("%w: category %s would become its own ancestor", apperr.ErrConflictingState, id)
		}
		if seen[*cur] {
			return fmt.Errorf("%w: ancestry of %s loops at %s", apperr.ErrCycleDetected, *parentID, *cur)
		}
		seen[*cur] = true

		next, ok := parents[*cur]
		if !ok {
			// Dangling reference ends the chain.
			return nil
		}
		cur = next
	}
	return nil
}
