// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services and keep transport concerns out of the core.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accessmodels "factgate/internal/access/models"
	authmodels "factgate/internal/auth/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/httputil"
	"factgate/pkg/requestcontext"
)

// AuthService is the authentication surface the transport exposes.
type AuthService interface {
	Authenticate(ctx context.Context, identifier, password string, tenantID id.TenantID) (*authmodels.AuthResult, error)
	ValidateSession(ctx context.Context, token string) (*accessmodels.UserContext, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/session", h.HandleSession)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	TenantID   string `json:"tenant_id,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	UserID            string   `json:"user_id"`
	Username          string   `json:"username"`
	Role              string   `json:"role"`
	TenantID          string   `json:"tenant_id,omitempty"`
	MaxClassification string   `json:"max_classification_level"`
	Entities          []string `json:"accessible_entities,omitempty"`
	Periods           []string `json:"accessible_periods,omitempty"`
	CostCenters       []string `json:"cost_centers,omitempty"`
	Department        string   `json:"department,omitempty"`
	Permissions       []string `json:"permissions,omitempty"`
	SessionID         string   `json:"session_id"`
}

func toUserResponse(user *accessmodels.UserContext) userResponse {
	return userResponse{
		UserID:            user.UserID.String(),
		Username:          user.Username,
		Role:              string(user.Role),
		TenantID:          string(user.TenantID),
		MaxClassification: user.MaxClassification.String(),
		Entities:          user.AccessibleEntities,
		Periods:           user.AccessiblePeriods,
		CostCenters:       user.CostCenters,
		Department:        user.Department,
		Permissions:       accessmodels.EncodePermissions(user.Permissions),
		SessionID:         user.SessionID.String(),
	}
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[loginRequest](w, r)
	if !ok {
		return
	}
	if req.Identifier == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identifier and password are required"))
		return
	}

	var tenantID id.TenantID
	if req.TenantID != "" {
		parsed, err := id.ParseTenantID(req.TenantID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		tenantID = parsed
	}

	result, err := h.auth.Authenticate(ctx, req.Identifier, req.Password, tenantID)
	if err != nil {
		h.logger.ErrorContext(ctx, "authentication failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !result.Success {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, result.Error))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token: result.SessionToken,
		User:  toUserResponse(result.User),
	})
}

// HandleLogout handles POST /auth/logout. Returns whether a live session was
// actually revoked; replaying a logout is not an error.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	revoked, err := h.auth.Logout(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": revoked})
}

// HandleSession handles GET /auth/session: the token introspection endpoint.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.auth.ValidateSession(ctx, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
