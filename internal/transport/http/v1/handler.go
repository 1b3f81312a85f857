// Package v1 provides the public HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rezaarrazi-sqe/langfuse/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/projects/:project_id/observations/:observation_id", h.GetObservation)

	// Dataset run exports
	e.GET("/v1/projects/:project_id/datasets/:dataset_id/runs/:run_id/export.csv", h.ExportRunCSV)
	e.POST("/v1/projects/:project_id/datasets/:dataset_id/runs/:run_id/exports", h.UploadRunExport)

	// Remote experiment webhook
	e.GET("/v1/projects/:project_id/datasets/:dataset_id/remote-experiment", h.GetRemoteExperiment)
	e.PUT("/v1/projects/:project_id/datasets/:dataset_id/remote-experiment", h.UpsertRemoteExperiment)
	e.DELETE("/v1/projects/:project_id/datasets/:dataset_id/remote-experiment", h.DeleteRemoteExperiment)
	e.POST("/v1/projects/:project_id/datasets/:dataset_id/remote-experiment/trigger", h.TriggerRemoteExperiment)

	e.GET("/v1/remote-experiment/endpoints", h.ListRemoteExperimentEndpoints)
	e.POST("/v1/remote-experiment/url/compose", h.ComposeURL)
	e.POST("/v1/remote-experiment/url/parse", h.ParseURL)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
