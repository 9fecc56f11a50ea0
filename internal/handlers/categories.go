// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/cache"
	"cmsmini/internal/categorytree"
	"cmsmini/internal/listing"
	"cmsmini/internal/models"
)

// Categories groups the category handlers. The active list and the tree
// are served from the response cache; every mutation clears it.
type Categories struct {
	categories CategoryRepository
	cache      ResponseCache
}

// NewCategories creates a new Categories handler group.
func NewCategories(categories CategoryRepository, responses ResponseCache) *Categories {
	return &Categories{categories: categories, cache: responses}
}

type categoryResponse struct {
	Category *models.Category `json:"category"`
}

type categoriesResponse struct {
	Categories []models.Category `json:"categories"`
}

// nullableID tells an absent parent_id apart from an explicit null.
type nullableID struct {
	Set   bool
	Value *uuid.UUID
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		n.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// categoryInput carries the writable category fields. Nil means "not
// supplied".
type categoryInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Color       *string    `json:"color"`
	Icon        *string    `json:"icon"`
	ParentID    nullableID `json:"parent_id"`
	SortOrder   *int       `json:"sort_order"`
	IsActive    *bool      `json:"is_active"`
}

func (in *categoryInput) apply(c *models.Category) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != c.Name || c.Slug == "" {
			c.Slug = models.DeriveSlug(name)
			if c.Slug == "" {
				return invalid("name must contain at least one letter or digit")
			}
		}
		c.Name = name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.ParentID.Set {
		c.ParentID = in.ParentID.Value
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

// List returns a page of categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	params, err := listing.ParseQuery(r.URL.Query())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := listing.Compose(listing.Categories, params, nil)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	cats, total, err := h.categories.List(r.Context(), q)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page(cats, q, total))
}

// cached serves key from the response cache, or builds and stores it.
func (h *Categories) cached(w http.ResponseWriter, r *http.Request, key string, build func(context.Context) (any, error)) {
	body, slot, ok := h.cache.Get(r.Context(), key)
	if ok {
		writeRaw(w, http.StatusOK, body)
		return
	}

	data, err := build(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	body, err = json.Marshal(data)
	if err != nil {
		writeErr(w, r, fmt.Errorf("encode %s: %w", key, err))
		return
	}
	h.cache.Set(r.Context(), slot, body)
	writeRaw(w, http.StatusOK, body)
}

// All returns every active category, flat and sorted.
func (h *Categories) All(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, cache.KeyCategoryAll, func(ctx context.Context) (any, error) {
		cats, err := h.categories.Active(ctx)
		if err != nil {
			return nil, err
		}
		categorytree.SortSiblings(cats)
		return categoriesResponse{Categories: cats}, nil
	})
}

// Tree returns the active categories as a forest. With format=flat the
// forest is walked depth-first into one list carrying each node's depth,
// the order an indented picker shows. A cycle in stored data is answered
// with data_integrity, never with a partial tree.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	var flat bool
	switch format := r.URL.Query().Get("format"); format {
	case "", "nested":
	case "flat":
		flat = true
	default:
		writeErr(w, r, invalid("unsupported format %q", format))
		return
	}

	key := cache.KeyCategoryTree
	if flat {
		key = cache.KeyCategoryTreeFlat
	}
	h.cached(w, r, key, func(ctx context.Context) (any, error) {
		cats, err := h.categories.Active(ctx)
		if err != nil {
			return nil, err
		}
		forest, err := categorytree.Build(cats)
		if err != nil {
			return nil, err
		}
		if flat {
			forest = categorytree.Flatten(forest)
		}
		return categoriesResponse{Categories: forest}, nil
	})
}

func (h *Categories) find(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: category %s", apperr.ErrNotFound, id)
	}
	return c, nil
}

// Get returns one category.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	c, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{Category: c})
}

// Children returns the direct subcategories of a category, in display
// order.
func (h *Categories) Children(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if _, err := h.find(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}

	kids, err := h.categories.Children(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if kids == nil {
		kids = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: kids})
}

// Create adds a category. Without an explicit sort_order it goes after its
// last sibling.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.CategoryCreate, nil); err != nil {
		writeErr(w, r, err)
		return
	}

	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := validateCategory(&in, true); err != nil {
		writeErr(w, r, err)
		return
	}

	c := &models.Category{
		Color:    models.DefaultCategoryColor,
		Icon:     models.DefaultCategoryIcon,
		IsActive: true,
	}
	if err := in.apply(c); err != nil {
		writeErr(w, r, err)
		return
	}

	if c.ParentID != nil {
		parent, err := h.categories.FindByID(r.Context(), *c.ParentID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if parent == nil {
			writeErr(w, r, invalid("parent category %s does not exist", *c.ParentID))
			return
		}
	}
	if in.SortOrder == nil {
		next, err := h.categories.NextSortOrder(r.Context(), c.ParentID)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		c.SortOrder = next
	}

	created, err := h.categories.Create(r.Context(), c)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.Categories)

	slog.Info("category created", "category_id", created.ID, "slug", created.Slug)
	writeJSON(w, http.StatusCreated, categoryResponse{Category: created})
}

// Update edits a category. Moving it under one of its own descendants is
// refused.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.CategoryUpdate, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	var in categoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := validateCategory(&in, false); err != nil {
		writeErr(w, r, err)
		return
	}

	c, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := in.apply(c); err != nil {
		writeErr(w, r, err)
		return
	}

	if in.ParentID.Set {
		all, err := h.categories.All(r.Context())
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if err := categorytree.CheckParent(all, id, c.ParentID); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	updated, err := h.categories.Update(r.Context(), c)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.Categories)
	writeJSON(w, http.StatusOK, categoryResponse{Category: updated})
}

// Delete removes a category that has no children and no posts.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.CategoryDelete, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.Categories)

	slog.Info("category deleted", "category_id", id)
	writeJSON(w, http.StatusOK, message{Message: "category deleted"})
}
