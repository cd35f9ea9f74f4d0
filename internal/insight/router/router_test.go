package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kart-io/los-insight/internal/insight/biz"
	"github.com/kart-io/los-insight/internal/insight/handler"
	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/pkg/middleware"
)

func TestRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	collector := middleware.NewMetricsCollector("los_insight", "http")

	r := gin.New()
	r.Use(middleware.Metrics(collector))
	Register(r, handler.NewInsightHandler(biz.NewInsightService(nil, nil, nil, nil, nil, m)), m, collector)

	paths := make(map[string]bool)
	for _, ri := range r.Routes() {
		paths[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /metrics",
		"GET /v1/patients",
		"GET /v1/patients/:id",
		"POST /v1/patients/:id/answer",
		"PUT /v1/patients/:id/note",
		"GET /v1/cohort/trends",
		"GET /v1/cohort/assessments",
		"POST /v1/citations",
		"GET /v1/stats",
	} {
		assert.True(t, paths[want], want)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), "los_insight_answers_total")
	assert.Contains(t, w.Body.String(), "los_insight_http")
}
