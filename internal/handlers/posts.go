// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/markdown"
	"cmsmini/internal/middleware"
	"cmsmini/internal/models"
)

const (
	// statsWindow is how far back "new" reaches in the overviews.
	statsWindow = 30 * 24 * time.Hour

	// topPostsLimit is the number of posts in the top-by-views list.
	topPostsLimit = 5
)

// Posts groups the post handlers.
type Posts struct {
	posts      PostRepository
	categories CategoryRepository
	now        func() time.Time
}

// NewPosts creates a new Posts handler group.
func NewPosts(posts PostRepository, categories CategoryRepository) *Posts {
	return &Posts{posts: posts, categories: categories, now: time.Now}
}

type postResponse struct {
	Post *models.Post `json:"post"`
}

// postInput carries the writable post fields. Nil means "not supplied";
// author, views and likes are not accepted from clients.
type postInput struct {
	Title          *string            `json:"title"`
	Content        *string            `json:"content"`
	Excerpt        *string            `json:"excerpt"`
	CategoryIDs    *[]uuid.UUID       `json:"category_ids"`
	Tags           *[]string          `json:"tags"`
	Status         *models.PostStatus `json:"status"`
	IsFeatured     *bool              `json:"is_featured"`
	AllowComments  *bool              `json:"allow_comments"`
	SEOTitle       *string            `json:"seo_title"`
	SEODescription *string            `json:"seo_description"`
	SEOKeywords    *[]string          `json:"seo_keywords"`
}

// apply copies the supplied fields onto p and runs the write-path
// transforms: slug from title, tag normalization, publish stamp.
func (in *postInput) apply(p *models.Post, now time.Time) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title != p.Title || p.Slug == "" {
			p.Slug = models.DeriveSlug(title)
			if p.Slug == "" {
				return invalid("title must contain at least one letter or digit")
			}
		}
		p.Title = title
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Excerpt != nil {
		p.Excerpt = *in.Excerpt
	}
	if in.CategoryIDs != nil {
		p.CategoryIDs = dedupe(*in.CategoryIDs)
	}
	if in.Tags != nil {
		p.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.AllowComments != nil {
		p.AllowComments = *in.AllowComments
	}
	if in.SEOTitle != nil {
		p.SEOTitle = *in.SEOTitle
	}
	if in.SEODescription != nil {
		p.SEODescription = *in.SEODescription
	}
	if in.SEOKeywords != nil {
		p.SEOKeywords = *in.SEOKeywords
	}
	p.PublishedAt = models.PublishedAtFor(p.PublishedAt, p.Status, now)
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// checkCategories requires every id to name an existing, active category.
func (h *Posts) checkCategories(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := h.categories.CountActive(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return invalid("one or more categories do not exist or are inactive")
	}
	return nil
}

// visible allows published posts to everyone and unpublished ones to
// authors and above, or to their own author.
func visible(r *http.Request, p *models.Post) error {
	if p.IsPublished() {
		return nil
	}
	return authorize(r, access.ContentViewUnpublished, &p.AuthorID)
}

// withHTML renders the post body for single-post responses.
func withHTML(p *models.Post) error {
	html, err := markdown.ToSafeHTML(p.Content)
	if err != nil {
		return fmt.Errorf("render post %s: %w", p.ID, err)
	}
	p.ContentHTML = html
	return nil
}

func (h *Posts) find(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := h.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: post %s", apperr.ErrNotFound, id)
	}
	return p, nil
}

// List returns a page of posts. Callers below author only ever see
// published posts.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	params, err := listing.ParseQuery(r.URL.Query())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := listing.Compose(listing.Posts, params, middleware.PrincipalFromCtx(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	posts, total, err := h.posts.List(r.Context(), q)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page(posts, q, total))
}

// Stats returns the content overview.
func (h *Posts) Stats(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.StatsView, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	st, err := h.posts.Stats(r.Context(), h.now().Add(-statsWindow), topPostsLimit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// BySlug returns a post by slug and counts the view.
func (h *Posts) BySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.posts.FindBySlug(r.Context(), slug)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if p == nil {
		writeErr(w, r, fmt.Errorf("%w: post %q", apperr.ErrNotFound, slug))
		return
	}
	if err := visible(r, p); err != nil {
		writeErr(w, r, err)
		return
	}

	views, err := h.posts.IncrementViews(r.Context(), p.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p.Views = views

	if err := withHTML(p); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: p})
}

// ByID returns a post by id.
func (h *Posts) ByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := visible(r, p); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := withHTML(p); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: p})
}

// Create adds a post authored by the caller.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ContentCreate, nil); err != nil {
		writeErr(w, r, err)
		return
	}

	var in postInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := validatePost(&in, true); err != nil {
		writeErr(w, r, err)
		return
	}

	p := &models.Post{
		AuthorID:      middleware.PrincipalFromCtx(r.Context()).ID(),
		Status:        models.PostStatusDraft,
		AllowComments: true,
	}
	if err := in.apply(p, h.now()); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.checkCategories(r.Context(), p.CategoryIDs); err != nil {
		writeErr(w, r, err)
		return
	}

	created, err := h.posts.Create(r.Context(), p)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := withHTML(created); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("post created", "post_id", created.ID, "author_id", created.AuthorID, "status", created.Status)
	writeJSON(w, http.StatusCreated, postResponse{Post: created})
}

// Update edits a post. Editors and above may edit any post; authors only
// their own.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := authorize(r, access.ContentUpdate, &p.AuthorID); err != nil {
		writeErr(w, r, err)
		return
	}

	var in postInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := validatePost(&in, false); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := in.apply(p, h.now()); err != nil {
		writeErr(w, r, err)
		return
	}
	if in.CategoryIDs != nil {
		if err := h.checkCategories(r.Context(), p.CategoryIDs); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	updated, err := h.posts.Update(r.Context(), p)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := withHTML(updated); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postResponse{Post: updated})
}

// Delete removes a post. Editors and above may delete any post; authors
// only their own.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := authorize(r, access.ContentDelete, &p.AuthorID); err != nil {
		writeErr(w, r, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("post deleted", "post_id", id, "by", middleware.PrincipalFromCtx(r.Context()).ID())
	writeJSON(w, http.StatusOK, message{Message: "post deleted"})
}

type likesResponse struct {
	Likes int64 `json:"likes"`
}

// Like adds one like to a post the caller can see.
func (h *Posts) Like(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ContentLike, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	p, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := visible(r, p); err != nil {
		writeErr(w, r, err)
		return
	}

	likes, err := h.posts.IncrementLikes(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likesResponse{Likes: likes})
}
