package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/handler"
	"github.com/noah-isme/camp-school-api/internal/models"
	"github.com/noah-isme/camp-school-api/internal/service"
	"github.com/noah-isme/camp-school-api/pkg/config"
)

type stubTokens struct{ role models.UserRole }

func (s stubTokens) ValidateToken(string) (*models.JWTClaims, error) {
	return &models.JWTClaims{UserID: "u-1", Email: "s@x.com", Role: s.role}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(env, prefix string, role models.UserRole) *gin.Engine {
	return New(Options{
		Env:       env,
		APIPrefix: prefix,
		Metrics:   service.NewMetricsService(),
		Tokens:    stubTokens{role: role},
	}, Handlers{
		Health:        handler.NewHealthHandler(nil, nil),
		Auth:          handler.NewAuthHandler(nil),
		Users:         handler.NewUserHandler(nil),
		Classes:       handler.NewClassHandler(nil),
		Selections:    handler.NewSelectionHandler(nil),
		Payments:      handler.NewPaymentHandler(nil, nil, nil),
		AdminPayments: handler.NewAdminPaymentHandler(nil, nil, nil),
	})
}

func routeSet(r *gin.Engine) map[string]bool {
	set := map[string]bool{}
	for _, route := range r.Routes() {
		set[route.Method+" "+route.Path] = true
	}
	return set
}

func serve(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRoutesMountedUnderPrefix(t *testing.T) {
	routes := routeSet(newTestEngine(config.EnvDevelopment, "/api/", models.RoleStudent))

	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /docs/*any",
		"GET /api/",
		"POST /api/jwt",
		"GET /api/users",
		"POST /api/users",
		"PATCH /api/users/admin/:id",
		"GET /api/users/instructor/:email",
		"GET /api/instructors",
		"GET /api/classes",
		"PUT /api/classes/:id",
		"PATCH /api/classes/:id/status",
		"GET /api/instructor-classes",
		"POST /api/selectclass",
		"DELETE /api/selectclass/:id",
		"GET /api/payment/:id",
		"POST /api/create-payment-intent",
		"POST /api/payments",
		"GET /api/enrolled-classes/:email",
		"GET /api/payments/:id/receipt",
		"GET /api/admin/payments/review",
		"POST /api/admin/payments/:id/reconcile",
		"GET /api/admin/payments/export",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestDocsHiddenInProduction(t *testing.T) {
	routes := routeSet(newTestEngine(config.EnvProduction, "", models.RoleStudent))
	assert.False(t, routes["GET /docs/*any"])
	assert.True(t, routes["GET /"])
}

func TestPublicBanner(t *testing.T) {
	rec := serve(newTestEngine(config.EnvDevelopment, "", models.RoleStudent), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "School is Open", rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment, "", models.RoleStudent)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/payments"},
		{http.MethodPost, "/selectclass"},
		{http.MethodDelete, "/selectclass/s-1"},
		{http.MethodGet, "/payment/s-1"},
		{http.MethodPatch, "/users/admin/u-2"},
		{http.MethodGet, "/admin/payments"},
	} {
		rec := serve(r, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAdminRoutesRejectStudents(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment, "", models.RoleStudent)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPatch, "/users/instructor/u-2"},
		{http.MethodPatch, "/classes/c-1/status"},
		{http.MethodGet, "/admin/payments/review"},
		{http.MethodPost, "/admin/payments/p-1/reconcile"},
	} {
		rec := serve(r, tc.method, tc.path, "Bearer token")
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestInstructorRoutesRejectStudents(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment, "", models.RoleStudent)
	rec := serve(r, http.MethodPost, "/classes", "Bearer token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
