// Package http provides HTTP handlers for registration, token-based login,
// account management and the contact book.
package http

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/atinyakov/ContactKeeper/internal/middleware"
	"github.com/atinyakov/ContactKeeper/internal/models"
	"github.com/atinyakov/ContactKeeper/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates a user; models.ErrEmailTaken if the email is in use.
	Register(ctx context.Context, email, password string) (*models.User, error)
	// Login verifies credentials and returns an access/refresh token pair.
	Login(ctx context.Context, email, password string) (service.TokenPair, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// UpdateProfile changes the caller's own account.
	UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*models.User, error)
	// DeleteAccount removes the caller's account and contacts.
	DeleteAccount(ctx context.Context, userID int64) error
}

// AuthHandler handles HTTP requests for registration, login, token refresh
// and the caller's own profile.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Logger records failures that are not exposed to clients.
	Logger *zap.Logger
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,bcrypt"`
}

// LoginRequest carries login credentials. JSON clients send email; OAuth2
// password-form clients send username.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token in the body.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccessTokenResponse is returned by the refresh endpoint.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UpdateProfileRequest is the PATCH payload for the caller's account.
type UpdateProfileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=1,bcrypt"`
	IsActive *bool   `json:"is_active"`
}

// Register handles POST /api/register. It creates the user and answers
// 201 with the new user, 409 if the email is taken and 400 on invalid input.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || validate.Struct(req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/login. It accepts a JSON body or an OAuth2
// password form and answers 201 with an access/refresh token pair. Unknown
// emails and wrong passwords both yield the same 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(r)
	if !ok || validate.Struct(req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func decodeLogin(r *http.Request) (LoginRequest, bool) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, false
		}
		req.Email = r.PostForm.Get("username")
		if req.Email == "" {
			req.Email = r.PostForm.Get("email")
		}
		req.Password = r.PostForm.Get("password")
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}

// Refresh handles POST /api/refresh. A non-empty refresh_token in the JSON
// body takes precedence over the Authorization header. Any invalid, expired
// or access-scoped token yields 401.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	token := req.RefreshToken
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		h.Logger.Info("authentication failed", zap.String("reason", "missing refresh token"))
		middleware.WriteUnauthorized(w)
		return
	}

	access, err := h.AuthService.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AccessTokenResponse{AccessToken: access, TokenType: service.TokenTypeBearer})
}

// Me handles GET /api/users/me and returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/users/me.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || validate.Struct(req) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == nil && req.Password == nil && req.IsActive == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	updated, err := h.AuthService.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteMe handles DELETE /api/users/me and answers 204.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.AuthService.DeleteAccount(r.Context(), user.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
