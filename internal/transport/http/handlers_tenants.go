package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accessmodels "factgate/internal/access/models"
	authmodels "factgate/internal/auth/models"
	tenantmodels "factgate/internal/tenant/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/httputil"
)

// TenantManager is the tenant facade surface the transport exposes.
type TenantManager interface {
	CreateTenant(ctx context.Context, tenantID id.TenantID, name string) (*tenantmodels.Tenant, error)
	GetTenant(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	ReactivateTenant(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error)
	CreateTenantUser(ctx context.Context, tenantID id.TenantID, email, password string, permissions []accessmodels.Permission) (*authmodels.Credential, error)
	LoginTenantUser(ctx context.Context, email, password string) (string, error)
	GetTenantUsage(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Usage, error)
}

type TenantHandler struct {
	manager TenantManager
	logger  *slog.Logger
}

func NewTenantHandler(manager TenantManager, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{manager: manager, logger: logger}
}

// Register mounts the tenant routes. Admin gating is applied by the router;
// the tenant login route stays public.
func (h *TenantHandler) RegisterAdmin(r chi.Router) {
	r.Post("/tenants", h.HandleCreate)
	r.Get("/tenants/{tenantID}", h.HandleGet)
	r.Post("/tenants/{tenantID}/deactivate", h.HandleDeactivate)
	r.Post("/tenants/{tenantID}/reactivate", h.HandleReactivate)
	r.Post("/tenants/{tenantID}/users", h.HandleCreateUser)
	r.Get("/tenants/{tenantID}/usage", h.HandleUsage)
}

func (h *TenantHandler) RegisterPublic(r chi.Router) {
	r.Post("/tenants/login", h.HandleLogin)
}

func tenantIDParam(w http.ResponseWriter, r *http.Request) (id.TenantID, bool) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return tenantID, true
}

type createTenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *TenantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[createTenantRequest](w, r)
	if !ok {
		return
	}
	tenantID, err := id.ParseTenantID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.manager.CreateTenant(r.Context(), tenantID, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *TenantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	tenant, err := h.manager.GetTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *TenantHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	tenant, err := h.manager.DeactivateTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

func (h *TenantHandler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	tenant, err := h.manager.ReactivateTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

type createTenantUserRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Permissions []string `json:"permissions,omitempty"`
}

type createTenantUserResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id"`
}

func (h *TenantHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[createTenantUserRequest](w, r)
	if !ok {
		return
	}
	permissions, err := accessmodels.DecodePermissions(req.Permissions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credential, err := h.manager.CreateTenantUser(r.Context(), tenantID, req.Email, req.Password, permissions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createTenantUserResponse{
		UserID:   credential.UserID.String(),
		Email:    credential.Email,
		Username: credential.Username,
		Role:     string(credential.Role),
		TenantID: string(credential.TenantID),
	})
}

func (h *TenantHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantIDParam(w, r)
	if !ok {
		return
	}
	usage, err := h.manager.GetTenantUsage(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usage)
}

type tenantLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /tenants/login: the email-resolved tenant login.
func (h *TenantHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[tenantLoginRequest](w, r)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "email and password are required"))
		return
	}

	token, err := h.manager.LoginTenantUser(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
