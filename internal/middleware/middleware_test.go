package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/camp-school-api/internal/models"
	appErrors "github.com/noah-isme/camp-school-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type observed struct {
	method string
	path   string
	status int
}

type stubObserver struct{ calls []observed }

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.calls = append(s.calls, observed{method: method, path: path, status: status})
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRequiresBearer(t *testing.T) {
	v := &stubValidator{claims: &models.JWTClaims{Email: "s@x.com", Role: models.RoleStudent}}
	r := gin.New()
	r.GET("/me", JWT(v), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentClaims(c).Email)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/me", "Bearer ").Code)

	rec := perform(r, http.MethodGet, "/me", "bearer tok-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s@x.com", rec.Body.String())
	assert.Equal(t, "tok-1", v.seen)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	v := &stubValidator{err: appErrors.Wrap(errors.New("expired"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")}
	r := gin.New()
	r.GET("/me", JWT(v), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := perform(r, http.MethodGet, "/me", "Bearer tok")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	v := &stubValidator{err: errors.New("bad")}
	r := gin.New()
	r.GET("/open", OptionalJWT(v), func(c *gin.Context) {
		assert.Nil(t, CurrentClaims(c))
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/open", "Bearer tok").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/open", "").Code)
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		want   int
	}{
		{name: "admin allowed", claims: &models.JWTClaims{Email: "a@x.com", Role: models.RoleAdmin}, want: http.StatusOK},
		{name: "student forbidden", claims: &models.JWTClaims{Email: "s@x.com", Role: models.RoleStudent}, want: http.StatusForbidden},
		{name: "no claims", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", func(c *gin.Context) {
				if tc.claims != nil {
					c.Set(ContextUserKey, tc.claims)
				}
			}, RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

			assert.Equal(t, tc.want, perform(r, http.MethodGet, "/admin", "").Code)
		})
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &stubObserver{}
	r := gin.New()
	r.Use(Metrics(obs, "/metrics"))
	r.GET("/classes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/classes/abc", "")
	perform(r, http.MethodGet, "/nowhere", "")
	perform(r, http.MethodGet, "/metrics", "")

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{method: http.MethodGet, path: "/classes/:id", status: http.StatusOK}, obs.calls[0])
	assert.Equal(t, "unmatched", obs.calls[1].path)
	assert.Equal(t, http.StatusNotFound, obs.calls[1].status)
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/classes", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/classes", "")
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}
