// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

// Profile declares what a collection's listing accepts: the searchable text
// fields, the filters, the sort keys and their field orderings.
type Profile struct {
	Collection   string
	SearchFields []string
	Filters      map[string]bool
	Sorts        map[SortKey][]SortField
	DefaultSort  SortKey

	// PublishedOnly restricts anonymous and plain-role viewers to published
	// items.
	PublishedOnly bool
}

// Posts lists content items.
var Posts = Profile{
	Collection:   "posts",
	SearchFields: []string{"title", "content", "excerpt"},
	Filters: map[string]bool{
		FilterStatus:   true,
		FilterCategory: true,
		FilterAuthor:   true,
		FilterFeatured: true,
	},
	Sorts: map[SortKey][]SortField{
		SortNewest:  {{Field: "published_at", Desc: true}, {Field: "created_at", Desc: true}},
		SortOldest:  {{Field: "published_at"}, {Field: "created_at"}},
		SortPopular: {{Field: "views", Desc: true}, {Field: "likes", Desc: true}},
		SortTitle:   {{Field: "title"}},
		SortNone:    {{Field: "created_at"}},
	},
	DefaultSort:   SortNewest,
	PublishedOnly: true,
}

// Categories lists categories in their flat form.
var Categories = Profile{
	Collection:   "categories",
	SearchFields: []string{"name", "description"},
	Filters: map[string]bool{
		FilterActive: true,
		FilterParent: true,
	},
	Sorts: map[SortKey][]SortField{
		SortTitle: {{Field: "name"}},
		SortNone:  {{Field: "created_at"}},
	},
	DefaultSort: SortNone,
}

// Users lists accounts.
var Users = Profile{
	Collection:   "users",
	SearchFields: []string{"username", "email", "full_name"},
	Filters: map[string]bool{
		FilterRole:   true,
		FilterActive: true,
	},
	Sorts: map[SortKey][]SortField{
		SortNewest: {{Field: "created_at", Desc: true}},
		SortOldest: {{Field: "created_at"}},
		SortTitle:  {{Field: "username"}},
		SortNone:   {{Field: "created_at", Desc: true}},
	},
	DefaultSort: SortNone,
}
