// Package api wires the HTTP surface: pipeline control routes, Prometheus
// metrics, and the generated Swagger UI.
package api

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-report-stream/docs"
	"go-report-stream/internal/api/handler"
	"go-report-stream/pkg/router"
)

// RegisterRoutes mounts all API routes on r.
func RegisterRoutes(r *router.Router, h *handler.Handlers) {
	r.GET("/healthz", h.Healthz)

	r.POST("/api/v1/pipelines", h.StartPipeline)
	r.GET("/api/v1/pipelines", h.ListPipelines)
	r.GET("/api/v1/pipelines/counts", h.PipelineCounts)
	r.GET("/api/v1/pipelines/*", h.GetPipeline)
	r.GET("/api/v1/pipelines/*/snapshot", h.GetSnapshot)
	r.GET("/api/v1/pipelines/*/state", h.GetState)
	r.GET("/api/v1/pipelines/*/events", h.GetEvents)
	r.POST("/api/v1/pipelines/*/pause", h.PausePipeline)
	r.POST("/api/v1/pipelines/*/resume", h.ResumePipeline)
	r.POST("/api/v1/pipelines/*/stop", h.StopPipeline)

	r.Handle("GET", "/metrics", promhttp.Handler())
	r.Handle("GET", "/swagger/*", httpSwagger.WrapHandler)
}
