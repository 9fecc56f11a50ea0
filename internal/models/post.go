// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"cmsmini/internal/slug"
)

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post is an article. AuthorID is fixed at creation; Views and Likes only
// move through server-side increments.
type Post struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	Slug           string      `json:"slug"`
	Excerpt        string      `json:"excerpt"`
	Content        string      `json:"content"`
	ContentHTML    string      `json:"content_html,omitempty"`
	AuthorID       uuid.UUID   `json:"author_id"`
	CategoryIDs    []uuid.UUID `json:"category_ids"`
	Tags           []string    `json:"tags"`
	Status         PostStatus  `json:"status"`
	PublishedAt    *time.Time  `json:"published_at,omitempty"`
	Views          int64       `json:"views"`
	Likes          int64       `json:"likes"`
	IsFeatured     bool        `json:"is_featured"`
	AllowComments  bool        `json:"allow_comments"`
	SEOTitle       string      `json:"seo_title"`
	SEODescription string      `json:"seo_description"`
	SEOKeywords    []string    `json:"seo_keywords"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

// PostSummary is the short form used by the top-posts overview.
type PostSummary struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Views       int64      `json:"views"`
	Likes       int64      `json:"likes"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// PostStats is the aggregate content overview.
type PostStats struct {
	TotalPosts     int           `json:"total_posts"`
	PublishedPosts int           `json:"published_posts"`
	DraftPosts     int           `json:"draft_posts"`
	ArchivedPosts  int           `json:"archived_posts"`
	FeaturedPosts  int           `json:"featured_posts"`
	NewPosts       int           `json:"new_posts"`
	TopPosts       []PostSummary `json:"top_posts"`
}

// DeriveSlug returns the slug stored for a title or category name.
func DeriveSlug(s string) string {
	return slug.Generate(s)
}

// PublishedAtFor returns the published_at value a post must carry after
// moving to status. The timestamp is stamped once, on the first transition
// into published, and never cleared or moved afterwards.
func PublishedAtFor(current *time.Time, status PostStatus, now time.Time) *time.Time {
	if current != nil {
		return current
	}
	if status != PostStatusPublished {
		return nil
	}
	t := now
	return &t
}

// NormalizeTags lowercases and trims tags, dropping empty entries.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
