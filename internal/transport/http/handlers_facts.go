package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accessmodels "factgate/internal/access/models"
	factmodels "factgate/internal/facts/models"
	id "factgate/pkg/domain"
	dErrors "factgate/pkg/domain-errors"
	"factgate/pkg/platform/httputil"
)

// FactRepository is the RLS-scoped fact surface the transport exposes.
type FactRepository interface {
	Query(ctx context.Context, user *accessmodels.UserContext) ([]*factmodels.Fact, error)
	Insert(ctx context.Context, user *accessmodels.UserContext, fact *factmodels.Fact) (*factmodels.Fact, error)
	Delete(ctx context.Context, user *accessmodels.UserContext, factID uuid.UUID) error
}

type FactsHandler struct {
	repo   FactRepository
	logger *slog.Logger
}

func NewFactsHandler(repo FactRepository, logger *slog.Logger) *FactsHandler {
	return &FactsHandler{repo: repo, logger: logger}
}

// Register mounts the facts routes. Mount behind RequireSession.
func (h *FactsHandler) Register(r chi.Router) {
	r.Get("/facts", h.HandleQuery)
	r.Post("/facts", h.HandleInsert)
	r.Delete("/facts/{factID}", h.HandleDelete)
}

func (h *FactsHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	facts, err := h.repo.Query(r.Context(), user)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if facts == nil {
		facts = []*factmodels.Fact{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"facts": facts})
}

type insertFactRequest struct {
	TenantID       string  `json:"tenant_id"`
	EntityID       string  `json:"entity_id"`
	PeriodKey      string  `json:"period_key"`
	CostCenterCode string  `json:"cost_center_code"`
	Classification string  `json:"classification_level"`
	Metric         string  `json:"metric"`
	Value          float64 `json:"value"`
}

func (h *FactsHandler) HandleInsert(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	req, ok := httputil.Decode[insertFactRequest](w, r)
	if !ok {
		return
	}
	classification, err := accessmodels.ParseClassification(req.Classification)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.EntityID == "" || req.Metric == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entity_id and metric are required"))
		return
	}

	// A non-admin writes into their own tenant; only admins may address
	// another tenant explicitly.
	tenantID := user.TenantID
	if req.TenantID != "" && user.IsAdmin() {
		parsed, err := id.ParseTenantID(req.TenantID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		tenantID = parsed
	}

	fact, err := h.repo.Insert(r.Context(), user, &factmodels.Fact{
		TenantID:       tenantID,
		EntityID:       req.EntityID,
		PeriodKey:      req.PeriodKey,
		CostCenterCode: req.CostCenterCode,
		Classification: classification,
		Metric:         req.Metric,
		Value:          req.Value,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fact)
}

func (h *FactsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	factID, err := uuid.Parse(chi.URLParam(r, "factID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid fact id"))
		return
	}

	if err := h.repo.Delete(r.Context(), user, factID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
