package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"factgate/pkg/platform/httputil"
)

// Deps collects the handlers and middleware inputs the router mounts.
type Deps struct {
	Auth    *AuthHandler
	Tenants *TenantHandler
	Facts   *FactsHandler

	Sessions SessionValidator
}

// NewRouter wires all endpoints. Session-scoped routes sit behind the
// bearer-token middleware; tenant administration additionally requires the
// ADMIN role.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestContext)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Auth.Register(r)
	deps.Tenants.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Sessions))
		deps.Facts.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			deps.Tenants.RegisterAdmin(r)
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
