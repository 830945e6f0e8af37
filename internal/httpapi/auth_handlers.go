package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"jamaat.org/internal/audit"
	"jamaat.org/internal/auth"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/obs"
	"jamaat.org/internal/validation"
)

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginUser struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Role           auth.Role `json:"role"`
	AssignedMosque string    `json:"assignedMosque,omitempty"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt string    `json:"expiresAt"`
	User      loginUser `json:"user"`
}

type assignRoleRequest struct {
	Role           string `json:"role" validate:"required"`
	AssignedMosque string `json:"assignedMosque"`
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	u, err := a.auth.Register(r.Context(), auth.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, auth.ErrConflict):
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	case err != nil:
		writeServerError(w, r, err, "Server error")
		return
	}

	_ = audit.LogEvent(r.Context(), audit.UserRegistered, map[string]any{"user_id": u.ID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"userId":  u.ID,
	})
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	sess, err := a.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		_ = audit.LogEvent(r.Context(), audit.LoginFailed, map[string]any{"email": auth.NormalizeEmail(req.Email)})
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	case errors.Is(err, auth.ErrNotConfigured):
		obs.Ctx(r.Context()).Error().Err(err).Msg("login refused")
		writeMessage(w, http.StatusInternalServerError, "JWT secret is not configured")
		return
	case err != nil:
		writeServerError(w, r, err, "Server error")
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), sess.User.Identity())
	_ = audit.LogEvent(ctx, audit.LoginSucceeded, nil)
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful!",
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(timeLayout),
		User: loginUser{
			ID:             sess.User.ID,
			Username:       sess.User.Username,
			Role:           sess.User.Role,
			AssignedMosque: sess.User.AssignedMosque,
		},
	})
}

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	u, err := a.auth.Me(r.Context(), id)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// AssignRole lets a super admin promote or demote a user. Mosque admins must be
// bound to an existing mosque.
func (a *API) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Role is required")
		return
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Unknown role")
		return
	}
	if role == auth.RoleMosqueAdmin && strings.TrimSpace(req.AssignedMosque) != "" {
		if _, err := a.listing.GetMosque(r.Context(), req.AssignedMosque); err != nil {
			if errors.Is(err, listing.ErrNotFound) {
				writeMessage(w, http.StatusNotFound, "Mosque not found")
				return
			}
			writeServerError(w, r, err, "Server error")
			return
		}
	}

	userID := chi.URLParam(r, "id")
	u, err := a.auth.AssignRole(r.Context(), userID, role, req.AssignedMosque)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, inputMessage(err, auth.ErrInvalidInput))
		return
	case errors.Is(err, auth.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		writeServerError(w, r, err, "Server error")
		return
	}
	_ = audit.LogEvent(r.Context(), audit.RoleAssigned, map[string]any{
		"target_user":     u.ID,
		"role":            u.Role.String(),
		"assigned_mosque": u.AssignedMosque,
	})
	writeJSON(w, http.StatusOK, u)
}
