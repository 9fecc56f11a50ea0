// Package store provides database access methods for all cmsmini
// entities. Each store struct wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `u.id, u.username, u.email, u.password_hash, u.full_name, u.bio, u.social_links,
	u.role, u.is_active, u.totp_secret, u.totp_enabled, u.created_at, u.updated_at`

var userSchema = schema{
	table: "users",
	alias: "u",
	fields: map[string]field{
		"username":           {eq: "u.username"},
		"email":              {eq: "u.email"},
		"full_name":          {eq: "u.full_name"},
		"created_at":         {eq: "u.created_at"},
		listing.FilterRole:   {eq: "u.role"},
		listing.FilterActive: {eq: "u.is_active"},
	},
}

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u      models.User
		social []byte
	)
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Bio, &social,
		&u.Role, &u.IsActive, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(social) > 0 {
		if err := json.Unmarshal(social, &u.SocialLinks); err != nil {
			return nil, fmt.Errorf("decode social links: %w", err)
		}
	}
	return &u, nil
}

func (s *UserStore) findOne(ctx context.Context, op, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id", "u.id = $1", id)
}

// FindByEmail retrieves a user by email, case-insensitively. Returns nil if
// not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email", "u.email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// List returns one page of users matching q and the total match count.
func (s *UserStore) List(ctx context.Context, q listing.QuerySpec) ([]models.User, int, error) {
	c, err := compile(userSchema, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users u `+c.where, c.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	page, args := c.limitOffset(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u `+c.where+` `+c.order+` `+page, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// Create inserts a new user. PasswordHash must already be set; the email is
// stored lowercased.
func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	social, err := json.Marshal(u.SocialLinks)
	if err != nil {
		return nil, fmt.Errorf("encode social links: %w", err)
	}
	role := u.Role
	if role == "" {
		role = models.RoleUser
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users AS u (username, email, password_hash, full_name, bio, social_links, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		u.Username, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash,
		u.FullName, u.Bio, social, role, u.IsActive,
	)
	created, err := scanUser(row)
	if err != nil {
		return nil, classify("create user", err)
	}
	return created, nil
}

// Update writes the mutable account fields of u: username, email, full name,
// bio, social links, role and active flag.
func (s *UserStore) Update(ctx context.Context, u *models.User) (*models.User, error) {
	social, err := json.Marshal(u.SocialLinks)
	if err != nil {
		return nil, fmt.Errorf("encode social links: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE users AS u SET
			username = $1, email = $2, full_name = $3, bio = $4, social_links = $5,
			role = $6, is_active = $7, updated_at = NOW()
		WHERE u.id = $8
		RETURNING `+userColumns,
		u.Username, strings.ToLower(strings.TrimSpace(u.Email)), u.FullName, u.Bio, social,
		u.Role, u.IsActive, u.ID,
	)
	updated, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, u.ID)
	}
	if err != nil {
		return nil, classify("update user", err)
	}
	return updated, nil
}

// SetPassword replaces the stored password hash.
func (s *UserStore) SetPassword(ctx context.Context, userID uuid.UUID, hash string) error {
	return s.exec(ctx, "set password",
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, userID)
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	return s.exec(ctx, "set totp secret",
		`UPDATE users SET totp_secret = $1, totp_enabled = FALSE, updated_at = NOW() WHERE id = $2`, secret, userID)
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "enable totp",
		`UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1 AND totp_secret IS NOT NULL`, userID)
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
func (s *UserStore) ResetTOTP(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "reset totp",
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1`, userID)
}

// Delete removes a user by ID. Accounts that still author posts cannot be
// removed and fail with apperr.ErrConflictingState.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, "delete user", `DELETE FROM users WHERE id = $1`, userID)
}

// Stats returns the account overview; accounts created after since count
// as new.
func (s *UserStore) Stats(ctx context.Context, since time.Time) (*models.UserStats, error) {
	st := &models.UserStats{ByRole: make(map[models.Role]int, len(models.Roles))}
	for _, r := range models.Roles {
		st.ByRole[r] = 0
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_active),
		       COUNT(*) FILTER (WHERE created_at >= $1)
		FROM users
	`, since).Scan(&st.TotalUsers, &st.ActiveUsers, &st.NewUsers)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	st.InactiveUsers = st.TotalUsers - st.ActiveUsers

	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("user stats by role: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role  models.Role
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		st.ByRole[role] = count
	}
	return st, rows.Err()
}

// exec runs a single-row write and reports a missing row as not found.
func (s *UserStore) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s: no such user", apperr.ErrNotFound, op)
	}
	return nil
}
