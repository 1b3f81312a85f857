package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
)

// GetObservation returns a single observation.
// GET /v1/projects/:project_id/observations/:observation_id?traceId=&startTime=&verbosity=
func (h *Handler) GetObservation(c echo.Context) error {
	ctx := c.Request().Context()

	params := domain.GetObservationParams{
		ID:        c.Param("observation_id"),
		ProjectID: c.Param("project_id"),
		TraceID:   c.QueryParam("traceId"),
	}

	if raw := c.QueryParam("startTime"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest(c, "startTime must be an RFC 3339 timestamp")
		}
		params.StartTime = &ts
	}

	verbosity, ok := domain.ParseVerbosity(c.QueryParam("verbosity"))
	if !ok {
		return badRequest(c, "verbosity must be one of compact, truncated, full")
	}
	params.Verbosity = verbosity

	obs, err := h.service.GetObservation(ctx, params)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, obs)
}
