// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import "cmsmini/internal/models"

// Action names a protected operation.
type Action string

const (
	ContentCreate          Action = "content.create"
	ContentUpdate          Action = "content.update"
	ContentDelete          Action = "content.delete"
	ContentViewUnpublished Action = "content.view_unpublished"
	ContentLike            Action = "content.like"

	AccountView       Action = "account.view"
	AccountUpdate     Action = "account.update"
	AccountAdminister Action = "account.administer"
	AccountDelete     Action = "account.delete"
	AccountList       Action = "account.list"

	StatsView Action = "stats.view"

	CategoryCreate Action = "category.create"
	CategoryUpdate Action = "category.update"
	CategoryDelete Action = "category.delete"
)

// Rule is the requirement attached to an action.
type Rule struct {
	MinRole models.Role
	// OwnerFallback allows a principal below MinRole when it owns the resource.
	OwnerFallback bool
}

// catalog is the fixed rule table. It is not configurable at runtime.
var catalog = map[Action]Rule{
	ContentCreate:          {MinRole: models.RoleAuthor},
	ContentUpdate:          {MinRole: models.RoleEditor, OwnerFallback: true},
	ContentDelete:          {MinRole: models.RoleEditor, OwnerFallback: true},
	ContentViewUnpublished: {MinRole: models.RoleAuthor, OwnerFallback: true},
	ContentLike:            {MinRole: models.RoleUser},

	AccountView:       {MinRole: models.RoleUser},
	AccountUpdate:     {MinRole: models.RoleAdmin, OwnerFallback: true},
	AccountAdminister: {MinRole: models.RoleAdmin},
	AccountDelete:     {MinRole: models.RoleAdmin},
	AccountList:       {MinRole: models.RoleAdmin},

	StatsView: {MinRole: models.RoleAdmin},

	CategoryCreate: {MinRole: models.RoleEditor},
	CategoryUpdate: {MinRole: models.RoleEditor},
	CategoryDelete: {MinRole: models.RoleAdmin},
}

// RuleFor returns the rule for a and false if a is not in the catalog.
func RuleFor(a Action) (Rule, bool) {
	r, ok := catalog[a]
	return r, ok
}

// Actions returns every catalogued action.
func Actions() []Action {
	out := make([]Action, 0, len(catalog))
	for a := range catalog {
		out = append(out, a)
	}
	return out
}
