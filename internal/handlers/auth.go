package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cmsmini/internal/apperr"
	"cmsmini/internal/auth"
	"cmsmini/internal/metrics"
	"cmsmini/internal/middleware"
	"cmsmini/internal/models"
	"cmsmini/internal/session"
)

// Auth groups registration, login and self-service account handlers.
type Auth struct {
	users    UserRepository
	sessions SessionRegistry
	tokens   TokenIssuer
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserRepository, sessions SessionRegistry, tokens TokenIssuer) *Auth {
	return &Auth{users: users, sessions: sessions, tokens: tokens}
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

// issue signs a token for user and registers its id.
func (a *Auth) issue(r *http.Request, user *models.User) (*tokenResponse, error) {
	raw, id, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	err = a.sessions.Create(r.Context(), id.TokenID, &session.Data{
		UserID:    user.ID,
		CreatedAt: id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
		RemoteIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	return &tokenResponse{Token: raw, ExpiresAt: id.ExpiresAt, User: user}, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register creates a plain user account and signs it in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	for _, err := range []error{
		validateUsername(req.Username),
		validateEmail(req.Email),
		validatePassword("password", req.Password),
		validateFullName(req.FullName),
	} {
		if err != nil {
			writeErr(w, r, err)
			return
		}
	}

	existing, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if existing != nil {
		writeErr(w, r, fmt.Errorf("%w: email is already registered", apperr.ErrConflictingState))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	// Role and active flag are never taken from the request.
	user, err := a.users.Create(r.Context(), &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         models.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}

	resp, err := a.issue(r, user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("account registered", "user_id", user.ID, "username", user.Username)
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login exchanges email and password, plus a TOTP code when two-factor
// authentication is enabled, for a bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErr(w, r, invalid("email and password are required"))
		return
	}

	user, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		metrics.RecordLogin("invalid_credentials")
		writeErr(w, r, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated))
		return
	}
	if !user.IsActive {
		metrics.RecordLogin("disabled")
		writeErr(w, r, fmt.Errorf("%w: account is disabled", apperr.ErrAccountDisabled))
		return
	}

	if user.TOTPEnabled && user.TOTPSecret != nil {
		if req.Code == "" {
			metrics.RecordLogin("totp_required")
			writeError(w, http.StatusUnauthorized, "totp_required", "two-factor code required")
			return
		}
		if !auth.ValidateTOTP(req.Code, *user.TOTPSecret) {
			metrics.RecordLogin("invalid_totp")
			writeErr(w, r, fmt.Errorf("%w: invalid two-factor code", apperr.ErrUnauthenticated))
			return
		}
	}

	resp, err := a.issue(r, user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	metrics.RecordLogin("success")
	slog.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, resp)
}

// Me returns the authenticated account.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	v := middleware.VerifiedFromCtx(r.Context())
	writeJSON(w, http.StatusOK, userResponse{User: v.Account})
}

type profileRequest struct {
	FullName    *string             `json:"full_name"`
	Bio         *string             `json:"bio"`
	SocialLinks *models.SocialLinks `json:"social_links"`
}

// UpdateProfile changes the caller's own profile fields. Role, email and
// active flag are not accepted here.
func (a *Auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	user := *middleware.VerifiedFromCtx(r.Context()).Account
	if req.FullName != nil {
		if err := validateFullName(*req.FullName); err != nil {
			writeErr(w, r, err)
			return
		}
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Bio != nil {
		if err := validateBio(*req.Bio); err != nil {
			writeErr(w, r, err)
			return
		}
		user.Bio = *req.Bio
	}
	if req.SocialLinks != nil {
		if err := validateSocialLinks(*req.SocialLinks); err != nil {
			writeErr(w, r, err)
			return
		}
		user.SocialLinks = *req.SocialLinks
	}

	updated, err := a.users.Update(r.Context(), &user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: updated})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the caller's password and revokes every other
// token the account holds.
func (a *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}
	if req.CurrentPassword == "" {
		writeErr(w, r, invalid("current_password is required"))
		return
	}
	if err := validatePassword("new_password", req.NewPassword); err != nil {
		writeErr(w, r, err)
		return
	}

	v := middleware.VerifiedFromCtx(r.Context())
	if !auth.CheckPassword(v.Account.PasswordHash, req.CurrentPassword) {
		writeErr(w, r, invalid("current password is incorrect"))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := a.users.SetPassword(r.Context(), v.Account.ID, hash); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := a.sessions.DestroyAllForUser(r.Context(), v.Account.ID, v.Identity.TokenID); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("password changed", "user_id", v.Account.ID)
	writeJSON(w, http.StatusOK, message{Message: "password changed"})
}

// Logout revokes the token used for this request.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	v := middleware.VerifiedFromCtx(r.Context())
	if err := a.sessions.Destroy(r.Context(), v.Identity.TokenID); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "logged out"})
}

// TwoFASetup generates and stores a new TOTP secret for the caller. The
// second factor stays off until TwoFAEnable confirms a code.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	user := middleware.VerifiedFromCtx(r.Context()).Account
	if user.TOTPEnabled {
		writeErr(w, r, fmt.Errorf("%w: two-factor authentication is already enabled", apperr.ErrConflictingState))
		return
	}

	enrollment, err := auth.NewTOTPEnrollment(user.Email)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := a.users.SetTOTPSecret(r.Context(), user.ID, enrollment.Secret); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

type codeRequest struct {
	Code string `json:"code"`
}

// TwoFAEnable turns on two-factor authentication once the caller proves
// possession of the secret from TwoFASetup.
func (a *Auth) TwoFAEnable(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, r, err)
		return
	}

	user := middleware.VerifiedFromCtx(r.Context()).Account
	if user.TOTPEnabled {
		writeErr(w, r, fmt.Errorf("%w: two-factor authentication is already enabled", apperr.ErrConflictingState))
		return
	}
	if user.TOTPSecret == nil {
		writeErr(w, r, fmt.Errorf("%w: run two-factor setup first", apperr.ErrConflictingState))
		return
	}
	if !auth.ValidateTOTP(req.Code, *user.TOTPSecret) {
		writeErr(w, r, invalid("invalid two-factor code"))
		return
	}

	if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
		writeErr(w, r, err)
		return
	}
	slog.Info("2fa enabled", "user_id", user.ID)
	writeJSON(w, http.StatusOK, message{Message: "two-factor authentication enabled"})
}
