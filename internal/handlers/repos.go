// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cmsmini/internal/auth"
	"cmsmini/internal/listing"
	"cmsmini/internal/models"
	"cmsmini/internal/session"
)

// UserRepository is the account storage the handlers need.
// *store.UserStore satisfies it.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, q listing.QuerySpec) ([]models.User, int, error)
	Create(ctx context.Context, u *models.User) (*models.User, error)
	Update(ctx context.Context, u *models.User) (*models.User, error)
	SetPassword(ctx context.Context, userID uuid.UUID, hash string) error
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	ResetTOTP(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*models.UserStats, error)
}

// PostRepository is the post storage. *store.PostStore satisfies it.
type PostRepository interface {
	List(ctx context.Context, q listing.QuerySpec) ([]models.Post, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	IncrementLikes(ctx context.Context, id uuid.UUID) (int64, error)
	Stats(ctx context.Context, since time.Time, top int) (*models.PostStats, error)
}

// CategoryRepository is the category storage. *store.CategoryStore
// satisfies it.
type CategoryRepository interface {
	All(ctx context.Context) ([]models.Category, error)
	Active(ctx context.Context) ([]models.Category, error)
	List(ctx context.Context, q listing.QuerySpec) ([]models.Category, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Children(ctx context.Context, id uuid.UUID) ([]models.Category, error)
	CountActive(ctx context.Context, ids []uuid.UUID) (int, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	NextSortOrder(ctx context.Context, parentID *uuid.UUID) (int, error)
}

// SessionRegistry records issued token ids. *session.Store satisfies it.
type SessionRegistry interface {
	Create(ctx context.Context, id string, data *session.Data) error
	Destroy(ctx context.Context, id string) error
	DestroyAllForUser(ctx context.Context, userID uuid.UUID, keep ...string) error
}

// TokenIssuer signs bearer tokens. *auth.Tokens satisfies it.
type TokenIssuer interface {
	Issue(accountID uuid.UUID) (string, auth.Identity, error)
}

// ResponseCache stores encoded responses. Get hands out the slot a missed
// body is stored in. *cache.ResponseCache satisfies it.
type ResponseCache interface {
	Get(ctx context.Context, key string) (body []byte, slot string, ok bool)
	Set(ctx context.Context, slot string, body []byte)
	Invalidate(ctx context.Context, group string)
}
