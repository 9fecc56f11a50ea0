// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/models"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `c.id, c.name, c.slug, c.description, c.color, c.icon, c.is_active,
	c.parent_id, c.sort_order, c.created_at, c.updated_at`

var categorySchema = schema{
	table: "categories",
	alias: "c",
	fields: map[string]field{
		"name":               {eq: "c.name"},
		"description":        {eq: "c.description"},
		"sort_order":         {eq: "c.sort_order"},
		"created_at":         {eq: "c.created_at"},
		listing.FilterActive: {eq: "c.is_active"},
		listing.FilterParent: {eq: "c.parent_id"},
	},
}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color, &c.Icon, &c.IsActive,
		&c.ParentID, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) query(ctx context.Context, op, query string, args ...any) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// All returns every category, unordered. Tree building and ancestry checks
// work on this flat form.
func (s *CategoryStore) All(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, "all categories", `SELECT `+categoryColumns+` FROM categories c`)
}

// Active returns active categories ordered by sort_order, then name.
func (s *CategoryStore) Active(ctx context.Context) ([]models.Category, error) {
	return s.query(ctx, "active categories", `
		SELECT `+categoryColumns+` FROM categories c
		WHERE c.is_active
		ORDER BY c.sort_order, c.name`)
}

// List returns one page of categories matching q and the total match count.
func (s *CategoryStore) List(ctx context.Context, q listing.QuerySpec) ([]models.Category, int, error) {
	c, err := compile(categorySchema, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories c `+c.where, c.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	page, args := c.limitOffset(q)
	items, err := s.query(ctx, "list categories",
		`SELECT `+categoryColumns+` FROM categories c `+c.where+` `+c.order+` `+page, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Children returns the direct children of id ordered for display.
func (s *CategoryStore) Children(ctx context.Context, id uuid.UUID) ([]models.Category, error) {
	return s.query(ctx, "category children", `
		SELECT `+categoryColumns+` FROM categories c
		WHERE c.parent_id = $1
		ORDER BY c.sort_order, c.name`, id)
}

// CountActive returns how many of ids name existing active categories.
func (s *CategoryStore) CountActive(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE is_active AND id = ANY($1::uuid[])`, uuidStrings(ids),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active categories: %w", err)
	}
	return n, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO categories AS c (name, slug, description, color, icon, is_active, parent_id, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.Color, c.Icon, c.IsActive, c.ParentID, c.SortOrder,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, classify("create category", err)
	}
	return result, nil
}

// reparentLockKey serializes parent reassignments across connections.
const reparentLockKey int64 = 0x636d735f74726565

// Update modifies an existing category. Callers check the new parent with
// categorytree.CheckParent first; the check is repeated here under a
// transaction-scoped lock so two concurrent moves cannot close a loop.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if c.ParentID != nil {
		if err := checkAncestry(ctx, tx, c.ID, *c.ParentID); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE categories AS c SET
			name = $1, slug = $2, description = $3, color = $4, icon = $5,
			is_active = $6, parent_id = $7, sort_order = $8, updated_at = NOW()
		WHERE c.id = $9
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.Color, c.Icon, c.IsActive, c.ParentID, c.SortOrder, c.ID,
	)
	result, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %s", apperr.ErrNotFound, c.ID)
	}
	if err != nil {
		return nil, classify("update category", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update category commit: %w", err)
	}
	return result, nil
}

// checkAncestry takes the reparent lock and fails with ErrConflictingState
// when id appears in the committed ancestry of parentID. UNION drops
// revisited rows, so an already looping chain still terminates.
func checkAncestry(ctx context.Context, tx *sql.Tx, id, parentID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, reparentLockKey); err != nil {
		return fmt.Errorf("reparent lock: %w", err)
	}

	var loops bool
	err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(id) AS (
			SELECT $1::uuid
			UNION
			SELECT c.parent_id FROM categories c
			JOIN ancestors a ON c.id = a.id
			WHERE c.parent_id IS NOT NULL
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2::uuid)`,
		parentID, id,
	).Scan(&loops)
	if err != nil {
		return fmt.Errorf("check category ancestry: %w", err)
	}
	if loops {
		return fmt.Errorf("%w: category %s would become its own ancestor", apperr.ErrConflictingState, id)
	}
	return nil
}

// Delete removes a category that has no children and is not referenced by
// any post. Either condition fails with apperr.ErrConflictingState.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	var children, posts int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM categories WHERE parent_id = $1),
		       (SELECT COUNT(*) FROM post_categories WHERE category_id = $1)
	`, id).Scan(&children, &posts)
	if err != nil {
		return fmt.Errorf("delete category check: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("%w: category has %d subcategories", apperr.ErrConflictingState, children)
	}
	if posts > 0 {
		return fmt.Errorf("%w: category is used by %d posts", apperr.ErrConflictingState, posts)
	}

	// The foreign keys still guard against a concurrent insert.
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return classify("delete category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: category %s", apperr.ErrNotFound, id)
	}
	return nil
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
