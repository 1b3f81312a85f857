package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExportRunCSV streams a dataset run's items as a CSV download.
// GET /v1/projects/:project_id/datasets/:dataset_id/runs/:run_id/export.csv
func (h *Handler) ExportRunCSV(c echo.Context) error {
	ctx := c.Request().Context()

	export, err := h.service.ExportRunItemsCSV(ctx, c.Param("project_id"), c.Param("dataset_id"), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(export.Content))
}

// UploadRunExport writes a dataset run's CSV to blob storage.
// POST /v1/projects/:project_id/datasets/:dataset_id/runs/:run_id/exports
func (h *Handler) UploadRunExport(c echo.Context) error {
	ctx := c.Request().Context()

	resp, err := h.service.UploadRunItemsCSV(ctx, c.Param("project_id"), c.Param("dataset_id"), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}
