// Package router provides insight service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/los-insight/internal/insight/handler"
	"github.com/kart-io/los-insight/internal/insight/metrics"
	"github.com/kart-io/los-insight/pkg/middleware"
)

// MetricsNamespace prefixes every exported business metric.
const MetricsNamespace = "los_insight"

// Register registers the insight service routes.
func Register(r gin.IRouter, h *handler.InsightHandler, m *metrics.InsightMetrics, collector *middleware.MetricsCollector) {
	logger.Info("Registering insight routes...")

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", exportMetrics(m, collector))

	v1 := r.Group("/v1")
	{
		v1.GET("/patients", h.Patients)

		patients := v1.Group("/patients/:id")
		{
			patients.GET("", h.Patient)
			patients.GET("/assessment", h.Assessment)
			patients.POST("/answer", h.Answer)
			patients.GET("/note", h.GetNote)
			patients.PUT("/note", h.PutNote)
		}

		c := v1.Group("/cohort")
		{
			c.GET("/kpis", h.KPIs)
			c.GET("/departments", h.Departments)
			c.GET("/conditions", h.Conditions)
			c.GET("/trends", h.Trends)
			c.GET("/assessments", h.Assessments)
		}

		v1.POST("/citations", h.Citations)
		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}

// exportMetrics writes business and HTTP counters in Prometheus text format.
func exportMetrics(m *metrics.InsightMetrics, collector *middleware.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := m.Export(MetricsNamespace)
		if collector != nil {
			body += collector.Export()
		}
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(body))
	}
}
