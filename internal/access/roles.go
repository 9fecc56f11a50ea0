// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package access decides whether a principal may perform an action. The role
// order, the action catalog and the decision function live here and nowhere
// else; handlers ask Decide instead of comparing role strings.
package access

import "cmsmini/internal/models"

// roleLevels is the total order user < author < editor < admin.
var roleLevels = map[models.Role]int{
	models.RoleUser:   0,
	models.RoleAuthor: 1,
	models.RoleEditor: 2,
	models.RoleAdmin:  3,
}

// Level returns the rank of role and false for unknown roles.
func Level(role models.Role) (int, bool) {
	lvl, ok := roleLevels[role]
	return lvl, ok
}

// MeetsMinimum reports whether role ranks at or above threshold. Unknown
// roles on either side never meet anything.
func MeetsMinimum(role, threshold models.Role) bool {
	have, ok := roleLevels[role]
	if !ok {
		return false
	}
	need, ok := roleLevels[threshold]
	if !ok {
		return false
	}
	return have >= need
}
