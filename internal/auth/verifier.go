// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

// AccountFinder loads accounts by id. A missing account returns nil, nil.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenRegistry reports whether an issued token id is still live.
type TokenRegistry interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Verified is the outcome of a successful verification.
type Verified struct {
	Principal access.Principal
	Identity  Identity
	Account   *models.User
}

// Verifier resolves a bearer credential to the acting principal.
type Verifier struct {
	tokens   *Tokens
	registry TokenRegistry
	accounts AccountFinder
}

// NewVerifier creates a verifier.
func NewVerifier(tokens *Tokens, registry TokenRegistry, accounts AccountFinder) *Verifier {
	return &Verifier{tokens: tokens, registry: registry, accounts: accounts}
}

// Verify checks the credential signature, expiry and key, confirms the token
// has not been revoked, loads the account and checks it is enabled. The
// principal is built only from the stored account.
func (v *Verifier) Verify(ctx context.Context, credential string) (*Verified, error) {
	id, err := v.tokens.Parse(credential)
	if err != nil {
		return nil, err
	}

	live, err := v.registry.Exists(ctx, id.TokenID)
	if err != nil {
		return nil, fmt.Errorf("verify token registry: %w", err)
	}
	if !live {
		return nil, fmt.Errorf("%w: token revoked", apperr.ErrUnauthenticated)
	}

	user, err := v.accounts.FindByID(ctx, id.AccountID)
	if err != nil {
		return nil, fmt.Errorf("verify load account: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: account no longer exists", apperr.ErrUnauthenticated)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account %s is disabled", apperr.ErrAccountDisabled, user.ID)
	}

	return &Verified{
		Principal: access.PrincipalFor(user),
		Identity:  id,
		Account:   user,
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
// It returns "" when the header is absent or uses another scheme.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
