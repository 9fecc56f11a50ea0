// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package listing turns raw listing parameters into a validated,
// storage-agnostic query descriptor. It performs no I/O.
package listing

import (
	"github.com/google/uuid"

	"cmsmini/internal/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxSearchLength = 100
)

// SortKey names one of the supported orderings.
type SortKey string

const (
	SortNewest  SortKey = "newest"
	SortOldest  SortKey = "oldest"
	SortPopular SortKey = "popular"
	SortTitle   SortKey = "title"
	SortNone    SortKey = "none"
)

// Filter keys a profile may declare.
const (
	FilterStatus   = "status"
	FilterCategory = "category"
	FilterAuthor   = "author"
	FilterFeatured = "featured"
	FilterActive   = "active"
	FilterParent   = "parent"
	FilterRole     = "role"
)

// Params carries the caller's listing options. Nil means "not supplied".
type Params struct {
	Page     *int
	PageSize *int
	Search   *string
	Sort     *SortKey

	Status   *string
	Category *string
	Author   *string
	Featured *bool
	Active   *bool
	Parent   *string // "null" selects roots
	Role     *string
}

// Op is a filter comparison.
type Op int

const (
	OpEq       Op = iota // field = value
	OpContains           // multi-valued field contains value
	OpIsNull             // field IS NULL; Value is ignored
)

// Filter is one conjunctive condition on a logical field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Search is a case-insensitive substring match over Fields, OR-ed together.
type Search struct {
	Term   string
	Fields []string
}

// SortField is one ordering term on a logical field.
type SortField struct {
	Field string
	Desc  bool
}

// QuerySpec is the normalized descriptor handed to the store. Field names are
// logical; the store maps them onto columns.
type QuerySpec struct {
	Collection string
	Filters    []Filter
	Search     *Search
	Sort       []SortField
	Page       int
	PageSize   int
	Skip       int
}

// Limit returns the page size, for symmetry with Skip.
func (q QuerySpec) Limit() int {
	return q.PageSize
}

// HasFilter reports whether q filters on field.
func (q QuerySpec) HasFilter(field string) bool {
	for _, f := range q.Filters {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Envelope is the pagination block returned with every listing.
type Envelope struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewEnvelope computes the envelope once the store has counted matches.
func NewEnvelope(q QuerySpec, total int) Envelope {
	pages := 0
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return Envelope{
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: pages,
	}
}

// Page pairs a result slice with its envelope.
type Page[T any] struct {
	Items      []T      `json:"items"`
	Pagination Envelope `json:"pagination"`
}

// idValue parses a filter value that must be a UUID.
func idValue(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	return id, err == nil
}

func validStatus(s string) bool {
	return models.PostStatus(s).Valid()
}

func validRole(s string) bool {
	return models.Role(s).Valid()
}
