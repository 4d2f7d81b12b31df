package httptransport_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accessservice "factgate/internal/access/service"
	authservice "factgate/internal/auth/service"
	sessionstore "factgate/internal/auth/store/session"
	userstore "factgate/internal/auth/store/user"
	factsservice "factgate/internal/facts/service"
	factsstore "factgate/internal/facts/store"
	"factgate/internal/jwttoken"
	tenantservice "factgate/internal/tenant/service"
	tenantstore "factgate/internal/tenant/store/tenant"
	usagestore "factgate/internal/tenant/store/usage"
	httptransport "factgate/internal/transport/http"
	audit "factgate/pkg/platform/audit"
	auditmemory "factgate/pkg/platform/audit/store/memory"
	"factgate/pkg/testutil"
)

// RouterSuite exercises the full HTTP surface against real services and
// in-memory stores, the same wiring the server binary uses.
type RouterSuite struct {
	suite.Suite

	router http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	publisher := audit.NewPublisher(auditmemory.NewInMemoryStore())

	users := userstore.New()
	s.Require().NoError(userstore.Seed(s.T().Context(), users, userstore.DefaultSeed(), time.Now().UTC()))

	tokens := jwttoken.New("router-suite-key", "factgate-test")
	auth := authservice.New(users, sessionstore.New(), tokens,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(publisher),
	)
	access := accessservice.New(
		accessservice.WithLogger(log),
		accessservice.WithAuditPublisher(publisher),
	)
	usage := usagestore.NewInMemory()
	manager := tenantservice.New(tenantstore.NewInMemory(), users, auth,
		tenantservice.WithLogger(log),
		tenantservice.WithAuditPublisher(publisher),
		tenantservice.WithUsageStore(usage),
	)
	facts := factsservice.New(factsstore.NewInMemory(), access,
		factsservice.WithLogger(log),
		factsservice.WithUsageRecorder(usage),
	)

	s.router = httptransport.NewRouter(httptransport.Deps{
		Auth:     httptransport.NewAuthHandler(auth, log),
		Tenants:  httptransport.NewTenantHandler(manager, log),
		Facts:    httptransport.NewFactsHandler(facts, log),
		Sessions: auth,
	})
}

func (s *RouterSuite) login(identifier, password string) string {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.DecodeResponse[map[string]any](s.T(), rr)
	token, _ := body["token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func (s *RouterSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")
}

func (s *RouterSuite) TestLogin() {
	s.Run("successful login returns token and user projection", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"identifier": "analyst@acme.example.com",
			"password":   "analyst123",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		body := testutil.DecodeResponse[map[string]any](s.T(), rr)
		s.NotEmpty(body["token"])
		user, ok := body["user"].(map[string]any)
		s.Require().True(ok)
		s.Equal("ANALYST", user["role"])
		s.Equal("tenant_acme", user["tenant_id"])
		s.Equal("CONFIDENTIAL", user["max_classification_level"])
	})

	s.Run("wrong password is a uniform unauthorized", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"identifier": "analyst@acme.example.com",
			"password":   "wrong",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("missing fields are rejected before authentication", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
			"identifier": "analyst@acme.example.com",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *RouterSuite) TestSessionIntrospection() {
	token := s.login("acme-analyst", "analyst123")

	rr := testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodGet, "/auth/session", nil), token))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "username", "acme-analyst")

	rr = testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodGet, "/auth/session", nil), "garbage-token"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RouterSuite) TestLogout() {
	token := s.login("analyst@acme.example.com", "analyst123")

	rr := testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/logout", nil), token))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "revoked", true)

	// Replay is not an error, it just reports nothing was revoked.
	rr = testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/logout", nil), token))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "revoked", false)

	// The token no longer grants access.
	rr = testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodGet, "/facts", nil), token))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RouterSuite) TestFactsScoping() {
	analyst := s.login("analyst@acme.example.com", "analyst123")
	admin := s.login("admin@factgate.local", "admin123")

	s.Run("facts require a session", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/facts", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	var factID string
	s.Run("analyst inserts inside their scope", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/facts", map[string]any{
				"entity_id":            "Company_A",
				"period_key":           "2023",
				"cost_center_code":     "CC-100",
				"classification_level": "INTERNAL",
				"metric":               "revenue",
				"value":                125000.0,
			}), analyst))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		body := testutil.DecodeResponse[map[string]any](s.T(), rr)
		factID, _ = body["id"].(string)
		s.NotEmpty(factID)
		s.Equal("tenant_acme", body["tenant_id"])
	})

	s.Run("analyst query sees the inserted row", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodGet, "/facts", nil), analyst))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		body := testutil.DecodeResponse[map[string]any](s.T(), rr)
		facts, ok := body["facts"].([]any)
		s.Require().True(ok)
		s.Len(facts, 1)
	})

	s.Run("write outside the entity scope is forbidden", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/facts", map[string]any{
				"entity_id":            "Company_B",
				"period_key":           "2023",
				"cost_center_code":     "CC-100",
				"classification_level": "INTERNAL",
				"metric":               "revenue",
				"value":                1.0,
			}), analyst))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("analyst may not delete", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodDelete, "/facts/"+factID, nil), analyst))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("admin deletes across tenants", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodDelete, "/facts/"+factID, nil), admin))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})
}

func (s *RouterSuite) TestTenantAdministration() {
	admin := s.login("admin@factgate.local", "admin123")
	analyst := s.login("analyst@acme.example.com", "analyst123")

	s.Run("tenant routes require the admin role", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants", map[string]string{
				"id": "tenant_newco", "name": "NewCo",
			}), analyst))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("admin manages the tenant lifecycle", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants", map[string]string{
				"id": "tenant_newco", "name": "NewCo",
			}), admin))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "status", "active")

		rr = testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/tenant_newco/deactivate", nil), admin))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "inactive")

		rr = testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/tenant_newco/reactivate", nil), admin))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "status", "active")

		rr = testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodGet, "/tenants/tenant_newco/usage", nil), admin))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "documents_this_month", float64(0))
	})

	s.Run("unknown tenant is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodGet, "/tenants/tenant_ghost", nil), admin))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *RouterSuite) TestTenantUserOnboarding() {
	admin := s.login("admin@factgate.local", "admin123")

	rr := testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants", map[string]string{
			"id": "tenant_login", "name": "Login Co",
		}), admin))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = testutil.DoRequest(s.router, testutil.WithBearer(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/tenant_login/users", map[string]any{
			"email":       "casey@login.example.com",
			"password":    "pw-123456",
			"permissions": []string{"financial_facts:read"},
		}), admin))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	testutil.AssertJSONContains(s.T(), rr, "role", "VIEWER")
	testutil.AssertJSONContains(s.T(), rr, "tenant_id", "tenant_login")

	s.Run("tenant login resolves the tenant from the directory", func() {
		login := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/login", map[string]string{
			"email":    "casey@login.example.com",
			"password": "pw-123456",
		}))
		testutil.AssertStatus(s.T(), login, http.StatusOK)
		body := testutil.DecodeResponse[map[string]string](s.T(), login)
		s.NotEmpty(body["token"])
	})

	s.Run("tenant login failure is a uniform unauthorized", func() {
		login := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/login", map[string]string{
			"email":    "casey@login.example.com",
			"password": "wrong",
		}))
		testutil.AssertStatusAndError(s.T(), login, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("deactivated tenant blocks logins immediately", func() {
		deactivate := testutil.DoRequest(s.router, testutil.WithBearer(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/tenant_login/deactivate", nil), admin))
		testutil.AssertStatus(s.T(), deactivate, http.StatusOK)

		login := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/tenants/login", map[string]string{
			"email":    "casey@login.example.com",
			"password": "pw-123456",
		}))
		testutil.AssertStatusAndError(s.T(), login, http.StatusUnauthorized, "unauthorized")
	})
}
