package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	token  string
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != s.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observation struct {
	method, path string
	status       int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.seen = append(r.seen, observation{method: method, path: path, status: status})
}

func newRouter(validator TokenValidator, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", JWT(validator))
	group.Use(guards...)
	group.GET("/users/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Claims(c).UserID})
	})
	return r
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresBearerToken(t *testing.T) {
	r := newRouter(stubValidator{token: "good", claims: &models.JWTClaims{UserID: 1}})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/users/1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/users/1", "bad").Code)

	req := httptest.NewRequest(http.MethodGet, "/users/1", nil)
	req.Header.Set("Authorization", "Token good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/users/1", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":1}`, w.Body.String())
}

func TestRequireProfiles(t *testing.T) {
	teacher := &models.JWTClaims{UserID: 7, ProfileName: "Professor"}
	manager := &models.JWTClaims{UserID: 1, ProfileName: "Coordenador"}

	r := newRouter(stubValidator{token: "t", claims: teacher}, RequireProfiles("administrador", "coordenador", Self))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/7", "t").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/users/8", "t").Code)

	r = newRouter(stubValidator{token: "m", claims: manager}, RequireProfiles("Administrador", "Coordenador"))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/users/8", "m").Code)
}

func TestRequireProfilesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", RequireProfiles("Administrador"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/open", "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/submissions/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(r, http.MethodGet, "/submissions/42", "")
	serve(r, http.MethodGet, "/nowhere", "")

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{method: http.MethodGet, path: "/submissions/:id", status: http.StatusAccepted}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/stats", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := serve(r, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"processing_time_ms"`)
}
