// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/models"
)

// PostStore manages posts and their category assignments.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `p.id, p.title, p.slug, p.excerpt, p.content, p.author_id, p.tags, p.status,
	p.published_at, p.views, p.likes, p.is_featured, p.allow_comments,
	p.seo_title, p.seo_description, p.seo_keywords, p.created_at, p.updated_at`

var postSchema = schema{
	table: "posts",
	alias: "p",
	fields: map[string]field{
		"title":        {eq: "p.title"},
		"content":      {eq: "p.content"},
		"excerpt":      {eq: "p.excerpt"},
		"published_at": {eq: "p.published_at"},
		"created_at":   {eq: "p.created_at"},
		"views":        {eq: "p.views"},
		"likes":        {eq: "p.likes"},

		listing.FilterStatus:   {eq: "p.status"},
		listing.FilterAuthor:   {eq: "p.author_id"},
		listing.FilterFeatured: {eq: "p.is_featured"},
		listing.FilterCategory: {contains: "EXISTS (SELECT 1 FROM post_categories pc WHERE pc.post_id = p.id AND pc.category_id = %s)"},
	},
}

// scanPost scans a row into a Post. m decodes the TEXT[] columns.
func scanPost(m *pgtype.Map, scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.AuthorID,
		m.SQLScanner(&p.Tags), &p.Status, &p.PublishedAt, &p.Views, &p.Likes,
		&p.IsFeatured, &p.AllowComments, &p.SEOTitle, &p.SEODescription,
		m.SQLScanner(&p.SEOKeywords), &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.SEOKeywords == nil {
		p.SEOKeywords = []string{}
	}
	p.CategoryIDs = []uuid.UUID{}
	return &p, nil
}

// List returns one page of posts matching q and the total match count.
func (s *PostStore) List(ctx context.Context, q listing.QuerySpec) ([]models.Post, int, error) {
	c, err := compile(postSchema, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts p `+c.where, c.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	page, args := c.limitOffset(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p `+c.where+` `+c.order+` `+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(m, rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	if err := s.attachCategories(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// FindByID retrieves a post by ID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findOne(ctx, "find post by id", "p.id = $1", id)
}

// FindBySlug retrieves a post by slug. Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, "find post by slug", "p.slug = $1", slug)
}

func (s *PostStore) findOne(ctx context.Context, op, where string, arg any) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE `+where, arg)
	p, err := scanPost(pgtype.NewMap(), row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	one := []models.Post{*p}
	if err := s.attachCategories(ctx, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// attachCategories fills CategoryIDs for every post in one query.
func (s *PostStore) attachCategories(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	index := make(map[uuid.UUID]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, category_id FROM post_categories
		WHERE post_id = ANY($1::uuid[])
		ORDER BY category_id`, uuidStrings(ids))
	if err != nil {
		return fmt.Errorf("load post categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, categoryID uuid.UUID
		if err := rows.Scan(&postID, &categoryID); err != nil {
			return fmt.Errorf("scan post category: %w", err)
		}
		i := index[postID]
		posts[i].CategoryIDs = append(posts[i].CategoryIDs, categoryID)
	}
	return rows.Err()
}

// Create inserts a post with its category assignments in one transaction.
// Slug, tags and published_at must already be derived by the caller.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO posts AS p (title, slug, excerpt, content, author_id, tags, status, published_at,
			is_featured, allow_comments, seo_title, seo_description, seo_keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+postColumns,
		p.Title, p.Slug, p.Excerpt, p.Content, p.AuthorID, nonNil(p.Tags), p.Status, p.PublishedAt,
		p.IsFeatured, p.AllowComments, p.SEOTitle, p.SEODescription, nonNil(p.SEOKeywords),
	)
	created, err := scanPost(pgtype.NewMap(), row)
	if err != nil {
		return nil, classify("create post", err)
	}

	if err := setCategories(ctx, tx, created.ID, p.CategoryIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create post commit: %w", err)
	}

	created.CategoryIDs = append([]uuid.UUID{}, p.CategoryIDs...)
	return created, nil
}

// Update writes the editable fields of p and replaces its category
// assignments. author_id, views and likes are never written here.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE posts AS p SET
			title = $1, slug = $2, excerpt = $3, content = $4, tags = $5, status = $6,
			published_at = $7, is_featured = $8, allow_comments = $9, seo_title = $10,
			seo_description = $11, seo_keywords = $12, updated_at = NOW()
		WHERE p.id = $13
		RETURNING `+postColumns,
		p.Title, p.Slug, p.Excerpt, p.Content, nonNil(p.Tags), p.Status,
		p.PublishedAt, p.IsFeatured, p.AllowComments, p.SEOTitle,
		p.SEODescription, nonNil(p.SEOKeywords), p.ID,
	)
	updated, err := scanPost(pgtype.NewMap(), row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post %s", apperr.ErrNotFound, p.ID)
	}
	if err != nil {
		return nil, classify("update post", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = $1`, p.ID); err != nil {
		return nil, fmt.Errorf("clear post categories: %w", err)
	}
	if err := setCategories(ctx, tx, p.ID, p.CategoryIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update post commit: %w", err)
	}

	updated.CategoryIDs = append([]uuid.UUID{}, p.CategoryIDs...)
	return updated, nil
}

func setCategories(ctx context.Context, tx *sql.Tx, postID uuid.UUID, categoryIDs []uuid.UUID) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO post_categories (post_id, category_id)
		SELECT $1::uuid, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`, postID, uuidStrings(categoryIDs))
	if err != nil {
		return classify("set post categories", err)
	}
	return nil
}

// Delete removes a post by ID; its category assignments cascade.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return classify("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: post %s", apperr.ErrNotFound, id)
	}
	return nil
}

// IncrementViews adds one view and returns the new count.
func (s *PostStore) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	return s.increment(ctx, "views", id)
}

// IncrementLikes adds one like and returns the new count.
func (s *PostStore) IncrementLikes(ctx context.Context, id uuid.UUID) (int64, error) {
	return s.increment(ctx, "likes", id)
}

// increment bumps a counter column in a single statement. column is one of
// the two literals above, never caller input.
func (s *PostStore) increment(ctx context.Context, column string, id uuid.UUID) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE posts SET `+column+` = `+column+` + 1 WHERE id = $1 RETURNING `+column, id,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: post %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", column, err)
	}
	return n, nil
}

// Stats returns the content overview: counts by status, featured and new
// posts since the given time, and the top published posts by views.
func (s *PostStore) Stats(ctx context.Context, since time.Time, top int) (*models.PostStats, error) {
	st := &models.PostStats{TopPosts: []models.PostSummary{}}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'published'),
		       COUNT(*) FILTER (WHERE status = 'draft'),
		       COUNT(*) FILTER (WHERE status = 'archived'),
		       COUNT(*) FILTER (WHERE is_featured),
		       COUNT(*) FILTER (WHERE created_at >= $1)
		FROM posts
	`, since).Scan(
		&st.TotalPosts, &st.PublishedPosts, &st.DraftPosts,
		&st.ArchivedPosts, &st.FeaturedPosts, &st.NewPosts,
	)
	if err != nil {
		return nil, fmt.Errorf("post stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, slug, views, likes, published_at
		FROM posts WHERE status = 'published'
		ORDER BY views DESC, id
		LIMIT $1`, top)
	if err != nil {
		return nil, fmt.Errorf("top posts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Views, &p.Likes, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan top post: %w", err)
		}
		st.TopPosts = append(st.TopPosts, p)
	}
	return st, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
