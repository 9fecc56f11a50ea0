// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categorytree turns the flat, parent-referencing category rows into
// a nested forest and guards parent reassignment against cycles. Stored data
// is not trusted to be acyclic: a cycle is reported, never followed.
package categorytree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

// Build nests flat into a forest. Categories without a parent, or whose
// parent id matches nothing in flat, become roots. Siblings are ordered by
// (SortOrder, Name). Duplicate ids keep their first occurrence.
//
// Every category must be reachable from a root; anything left over sits on
// or under a parent cycle and Build fails with apperr.ErrCycleDetected.
func Build(flat []models.Category) ([]models.Category, error) {
	byID := make(map[uuid.UUID]models.Category, len(flat))
	order := make([]uuid.UUID, 0, len(flat))
	for _, c := range flat {
		if _, dup := byID[c.ID]; dup {
			continue
		}
		byID[c.ID] = c
		order = append(order, c.ID)
	}

	children := make(map[uuid.UUID][]uuid.UUID, len(byID))
	var roots []uuid.UUID
	for _, id := range order {
		c := byID[id]
		if c.ParentID == nil {
			roots = append(roots, id)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			// Dangling parent: keep the category visible at the top level.
			roots = append(roots, id)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], id)
	}

	b := &builder{
		byID:     byID,
		children: children,
		onPath:   make(map[uuid.UUID]bool, len(byID)),
		done:     make(map[uuid.UUID]bool, len(byID)),
	}

	forest, err := b.attach(roots, 0)
	if err != nil {
		return nil, err
	}

	if len(b.done) != len(byID) {
		var stuck []string
		for _, id := range order {
			if !b.done[id] {
				stuck = append(stuck, id.String())
			}
		}
		return nil, fmt.Errorf("%w: unreachable categories %s", apperr.ErrCycleDetected, strings.Join(stuck, ","))
	}

	return forest, nil
}

type builder struct {
	byID     map[uuid.UUID]models.Category
	children map[uuid.UUID][]uuid.UUID
	onPath   map[uuid.UUID]bool
	done     map[uuid.UUID]bool
}

// attach materializes ids and their descendants at depth.
func (b *builder) attach(ids []uuid.UUID, depth int) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	nodes := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if b.onPath[id] || b.done[id] {
			return nil, fmt.Errorf("%w: category %s revisited", apperr.ErrCycleDetected, id)
		}
		b.onPath[id] = true

		c := b.byID[id]
		c.Depth = depth
		kids, err := b.attach(b.children[id], depth+1)
		if err != nil {
			return nil, err
		}
		c.Children = kids

		b.onPath[id] = false
		b.done[id] = true
		nodes = append(nodes, c)
	}

	SortSiblings(nodes)
	return nodes, nil
}

// SortSiblings orders categories by SortOrder, then Name.
func SortSiblings(cats []models.Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].SortOrder != cats[j].SortOrder {
			return cats[i].SortOrder < cats[j].SortOrder
		}
		return cats[i].Name < cats[j].Name
	})
}

// Flatten walks a forest depth-first and returns every node in display
// order with Depth preserved. Useful for indented select lists.
func Flatten(forest []models.Category) []models.Category {
	var result []models.Category
	flattenInto(forest, &result)
	return result
}

func flattenInto(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		kids := c.Children
		c.Children = nil
		*result = append(*result, c)
		if len(kids) > 0 {
			flattenInto(kids, result)
		}
	}
}
