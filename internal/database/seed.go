package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"cmsmini/internal/auth"
)

// AdminAccount describes the initial administrator created on an empty
// database.
type AdminAccount struct {
	Email    string
	Username string
	Password string
}

// Seed creates the initial admin account if no users exist yet. When no
// password is configured a random one is generated and logged once, which
// config only allows outside production.
func Seed(ctx context.Context, db *sql.DB, admin AdminAccount) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	password := admin.Password
	generated := password == ""
	if generated {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("seed generate password: %w", err)
		}
		password = hex.EncodeToString(buf)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed hash password: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, 'admin', TRUE)
	`, admin.Username, strings.ToLower(admin.Email), hash, "Administrator")
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	if generated {
		slog.Warn("database seeded with generated admin password",
			"email", admin.Email,
			"password", password,
		)
	} else {
		slog.Info("database seeded with admin user", "email", admin.Email)
	}

	return nil
}
