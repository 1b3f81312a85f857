package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/webhookurl"
)

// GetRemoteExperiment returns a dataset's webhook config.
// GET /v1/projects/:project_id/datasets/:dataset_id/remote-experiment
func (h *Handler) GetRemoteExperiment(c echo.Context) error {
	cfg, err := h.service.GetRemoteExperiment(c.Request().Context(), c.Param("project_id"), c.Param("dataset_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// UpsertRemoteExperiment creates or replaces a dataset's webhook config.
// PUT /v1/projects/:project_id/datasets/:dataset_id/remote-experiment
func (h *Handler) UpsertRemoteExperiment(c echo.Context) error {
	var req domain.UpsertRemoteExperimentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Form != nil {
		if err := c.Validate(req.Form); err != nil {
			return badRequest(c, err.Error())
		}
	}
	req.ProjectID = c.Param("project_id")
	req.DatasetID = c.Param("dataset_id")

	cfg, err := h.service.UpsertRemoteExperiment(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// DeleteRemoteExperiment removes a dataset's webhook config.
// DELETE /v1/projects/:project_id/datasets/:dataset_id/remote-experiment
func (h *Handler) DeleteRemoteExperiment(c echo.Context) error {
	if err := h.service.DeleteRemoteExperiment(c.Request().Context(), c.Param("project_id"), c.Param("dataset_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TriggerRemoteExperiment calls the dataset's webhook.
// POST /v1/projects/:project_id/datasets/:dataset_id/remote-experiment/trigger
func (h *Handler) TriggerRemoteExperiment(c echo.Context) error {
	var req domain.TriggerRemoteExperimentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	resp, err := h.service.TriggerRemoteExperiment(c.Request().Context(), c.Param("project_id"), c.Param("dataset_id"), req.Payload)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListRemoteExperimentEndpoints returns the path-mode endpoint catalog.
// GET /v1/remote-experiment/endpoints
func (h *Handler) ListRemoteExperimentEndpoints(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.RemoteExperimentEndpoints())
}

// ComposeURL resolves form state into an absolute URL.
// POST /v1/remote-experiment/url/compose
func (h *Handler) ComposeURL(c echo.Context) error {
	var req domain.URLFormRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	mode, err := webhookurl.ParseMode(req.Mode)
	if err != nil {
		return badRequest(c, err.Error())
	}

	url, err := h.service.ResolveRemoteExperimentURL(webhookurl.Form{
		Mode: mode,
		Host: req.Host,
		Port: req.Port,
		Path: req.Path,
		URL:  req.URL,
	})
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, domain.ComposeURLResponse{URL: url})
}

// ParseURL splits a URL into host, port and path.
// POST /v1/remote-experiment/url/parse
func (h *Handler) ParseURL(c echo.Context) error {
	var req domain.ParseURLRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "url is required")
	}

	parts, err := webhookurl.Parse(req.URL)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, domain.URLPartsResponse{Host: parts.Host, Port: parts.Port, Path: parts.Path})
}
