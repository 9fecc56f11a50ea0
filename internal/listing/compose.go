// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

// Compose validates params against profile and returns the query descriptor.
// viewer may be nil for anonymous requests.
//
// On profiles with PublishedOnly, a viewer that is absent or holds the plain
// user role gets status=published injected when no status is supplied, and
// is rejected with ErrInvalidParameter when asking for any other status.
func Compose(profile Profile, params Params, viewer *access.Principal) (QuerySpec, error) {
	q := QuerySpec{
		Collection: profile.Collection,
		Page:       DefaultPage,
		PageSize:   DefaultPageSize,
	}

	if params.Page != nil {
		if *params.Page < 1 {
			return QuerySpec{}, invalid("page must be at least 1")
		}
		q.Page = *params.Page
	}
	if params.PageSize != nil {
		if *params.PageSize < 1 || *params.PageSize > MaxPageSize {
			return QuerySpec{}, invalid("page size must be between 1 and %d", MaxPageSize)
		}
		q.PageSize = *params.PageSize
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return QuerySpec{}, invalid("page is out of range")
	}
	q.Skip = (q.Page - 1) * q.PageSize

	if params.Search != nil {
		term := strings.TrimSpace(*params.Search)
		if utf8.RuneCountInString(term) > MaxSearchLength {
			return QuerySpec{}, invalid("search must be at most %d characters", MaxSearchLength)
		}
		if term != "" {
			q.Search = &Search{Term: term, Fields: profile.SearchFields}
		}
	}

	filters, err := composeFilters(profile, params, viewer)
	if err != nil {
		return QuerySpec{}, err
	}
	q.Filters = filters

	key := profile.DefaultSort
	if params.Sort != nil {
		key = *params.Sort
	}
	sort, ok := profile.Sorts[key]
	if !ok {
		return QuerySpec{}, invalid("unsupported sort %q", key)
	}
	q.Sort = sort

	return q, nil
}

func composeFilters(profile Profile, params Params, viewer *access.Principal) ([]Filter, error) {
	var out []Filter

	allow := func(key string, supplied bool) error {
		if supplied && !profile.Filters[key] {
			return invalid("filter %q is not supported here", key)
		}
		return nil
	}

	for _, chk := range []struct {
		key      string
		supplied bool
	}{
		{FilterStatus, params.Status != nil},
		{FilterCategory, params.Category != nil},
		{FilterAuthor, params.Author != nil},
		{FilterFeatured, params.Featured != nil},
		{FilterActive, params.Active != nil},
		{FilterParent, params.Parent != nil},
		{FilterRole, params.Role != nil},
	} {
		if err := allow(chk.key, chk.supplied); err != nil {
			return nil, err
		}
	}

	switch {
	case params.Status != nil:
		status := *params.Status
		if !validStatus(status) {
			return nil, invalid("unknown status %q", status)
		}
		if profile.PublishedOnly && restricted(viewer) && status != string(models.PostStatusPublished) {
			return nil, invalid("status %q is not available to this viewer", status)
		}
		out = append(out, Filter{Field: FilterStatus, Op: OpEq, Value: status})
	case profile.PublishedOnly && restricted(viewer):
		out = append(out, Filter{Field: FilterStatus, Op: OpEq, Value: string(models.PostStatusPublished)})
	}

	if params.Category != nil {
		id, ok := idValue(*params.Category)
		if !ok {
			return nil, invalid("category must be an id")
		}
		out = append(out, Filter{Field: FilterCategory, Op: OpContains, Value: id})
	}
	if params.Author != nil {
		id, ok := idValue(*params.Author)
		if !ok {
			return nil, invalid("author must be an id")
		}
		out = append(out, Filter{Field: FilterAuthor, Op: OpEq, Value: id})
	}
	if params.Featured != nil {
		out = append(out, Filter{Field: FilterFeatured, Op: OpEq, Value: *params.Featured})
	}
	if params.Active != nil {
		out = append(out, Filter{Field: FilterActive, Op: OpEq, Value: *params.Active})
	}
	if params.Parent != nil {
		if *params.Parent == "null" {
			out = append(out, Filter{Field: FilterParent, Op: OpIsNull})
		} else {
			id, ok := idValue(*params.Parent)
			if !ok {
				return nil, invalid("parent must be an id or null")
			}
			out = append(out, Filter{Field: FilterParent, Op: OpEq, Value: id})
		}
	}
	if params.Role != nil {
		if !validRole(*params.Role) {
			return nil, invalid("unknown role %q", *params.Role)
		}
		out = append(out, Filter{Field: FilterRole, Op: OpEq, Value: *params.Role})
	}

	return out, nil
}

// restricted reports whether viewer may only see published content.
func restricted(viewer *access.Principal) bool {
	return viewer == nil || !viewer.Active() || viewer.Role() == models.RoleUser
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidParameter}, args...)...)
}
