// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cmsmini/internal/apperr"
)

// Identity is what a verified token asserts.
type Identity struct {
	AccountID uuid.UUID
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokens issues and parses signed bearer tokens.
type Tokens struct {
	ring   *KeyRing
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token service signing with ring.
func NewTokens(ring *KeyRing, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{ring: ring, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a new token for accountID with a fresh token id.
func (t *Tokens) Issue(accountID uuid.UUID) (string, Identity, error) {
	now := t.now().Truncate(time.Second)
	id := Identity{
		AccountID: accountID,
		TokenID:   uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(t.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   accountID.String(),
		ID:        id.TokenID,
		IssuedAt:  jwt.NewNumericDate(id.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
	})
	kid, key := t.ring.signingKey()
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

// Parse verifies raw and returns its identity. Every failure wraps
// apperr.ErrUnauthenticated.
func (t *Tokens) Parse(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		reason := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "token expired"
		}
		return Identity{}, fmt.Errorf("%w: %s: %v", apperr.ErrUnauthenticated, reason, err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed subject", apperr.ErrUnauthenticated)
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		return Identity{}, fmt.Errorf("%w: incomplete claims", apperr.ErrUnauthenticated)
	}

	return Identity{
		AccountID: accountID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (t *Tokens) keyFunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing key id")
	}
	return t.ring.verificationKey(kid)
}
