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

	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/listing"
	"cmsmini/internal/middleware"
	"cmsmini/internal/models"
)

// Users groups the account administration handlers.
type Users struct {
	users    UserRepository
	sessions SessionRegistry
	now      func() time.Time
}

// NewUsers creates a new Users handler group.
func NewUsers(users UserRepository, sessions SessionRegistry) *Users {
	return &Users{users: users, sessions: sessions, now: time.Now}
}

type userUpdateRequest struct {
	FullName    *string             `json:"full_name"`
	Bio         *string             `json:"bio"`
	SocialLinks *models.SocialLinks `json:"social_links"`
	Role        *models.Role        `json:"role"`
	IsActive    *bool               `json:"is_active"`
}

func (h *Users) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := h.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	return u, nil
}

// List returns a page of accounts.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.AccountList, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	params, err := listing.ParseQuery(r.URL.Query())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	q, err := listing.Compose(listing.Users, params, middleware.PrincipalFromCtx(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return
	}

	users, total, err := h.users.List(r.Context(), q)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page(users, q, total))
}

// Stats returns the account overview.
func (h *Users) Stats(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.StatsView, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	st, err := h.users.Stats(r.Context(), h.now().Add(-statsWindow))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Get returns one account.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.AccountView, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	u, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: u})
}

// Update edits an account. Users may edit their own profile fields; role
// and active flag need account.administer.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := authorize(r, access.AccountUpdate, &id); err != nil {
		writeErr(w, r, err)
		return
	}

	var req userUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Role != nil || req.IsActive != nil {
		if err := authorize(r, access.AccountAdminister, nil); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	u, err := h.find(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	wasActive := u.IsActive
	self := middleware.PrincipalFromCtx(r.Context()).ID() == id

	if req.FullName != nil {
		if err := validateFullName(*req.FullName); err != nil {
			writeErr(w, r, err)
			return
		}
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Bio != nil {
		if err := validateBio(*req.Bio); err != nil {
			writeErr(w, r, err)
			return
		}
		u.Bio = *req.Bio
	}
	if req.SocialLinks != nil {
		if err := validateSocialLinks(*req.SocialLinks); err != nil {
			writeErr(w, r, err)
			return
		}
		u.SocialLinks = *req.SocialLinks
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			writeErr(w, r, invalid("unknown role %q", *req.Role))
			return
		}
		if self && *req.Role != u.Role {
			writeErr(w, r, fmt.Errorf("%w: cannot change your own role", apperr.ErrConflictingState))
			return
		}
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		if self && !*req.IsActive {
			writeErr(w, r, fmt.Errorf("%w: cannot deactivate your own account", apperr.ErrConflictingState))
			return
		}
		u.IsActive = *req.IsActive
	}

	updated, err := h.users.Update(r.Context(), u)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if wasActive && !updated.IsActive {
		if err := h.sessions.DestroyAllForUser(r.Context(), id); err != nil {
			writeErr(w, r, err)
			return
		}
		slog.Info("user deactivated", "user_id", id)
	}
	writeJSON(w, http.StatusOK, userResponse{User: updated})
}

// Delete removes an account and revokes its tokens. Admins cannot delete
// themselves.
func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.AccountDelete, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if middleware.PrincipalFromCtx(r.Context()).ID() == id {
		writeErr(w, r, fmt.Errorf("%w: cannot delete your own account", apperr.ErrConflictingState))
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.sessions.DestroyAllForUser(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("user deleted", "user_id", id)
	writeJSON(w, http.StatusOK, message{Message: "user deleted"})
}

// ResetTOTP turns off two-factor authentication for an account that lost
// its authenticator.
func (h *Users) ResetTOTP(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.AccountAdminister, nil); err != nil {
		writeErr(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := h.users.ResetTOTP(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("2fa reset", "user_id", id)
	writeJSON(w, http.StatusOK, message{Message: "two-factor authentication reset"})
}
