package handler

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-console/internal/middleware"
	"github.com/noah-isme/backoffice-console/internal/models"
	appErrors "github.com/noah-isme/backoffice-console/pkg/errors"
	"github.com/noah-isme/backoffice-console/pkg/export"
	"github.com/noah-isme/backoffice-console/pkg/response"
)

type exporter interface {
	Submit(screen, requestedBy string, format export.Format, dataset export.Dataset) (*models.ExportJob, error)
	Job(id string) (*models.ExportJob, error)
	Open(token string) (*os.File, *models.ExportJob, error)
}

// ExportHandler exports the rows a screen currently shows.
type ExportHandler struct {
	workspace workspace
	exports   exporter
}

// NewExportHandler creates a new handler.
func NewExportHandler(ws workspace, exports exporter) *ExportHandler {
	return &ExportHandler{workspace: ws, exports: exports}
}

// Submit godoc
// @Summary Export the current page
// @Description Queue a CSV or PDF rendering of the rows the open screen shows
// @Tags Exports
// @Produce json
// @Param screen path string true "Screen key"
// @Param format query string false "csv or pdf" default(csv)
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /screens/{screen}/export [post]
func (h *ExportHandler) Submit(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, appErrors.Validation("invalid export format", map[string]string{"format": "must be one of: csv pdf"}))
		return
	}
	key := c.Param(middleware.ScreenParam)
	screen, err := h.workspace.Active(key)
	if err != nil {
		response.Error(c, err)
		return
	}
	requestedBy := ""
	if sess := sessionFromContext(c); sess != nil {
		requestedBy = sess.UserID
	}
	job, err := h.exports.Submit(key, requestedBy, format, screen.Dataset())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Job godoc
// @Summary Export status
// @Tags Exports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Job(c *gin.Context) {
	job, err := h.exports.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download an export
// @Description Serves the rendered file behind a signed, expiring link
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, job, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export file unreadable"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), export.Format(job.Format).ContentType(), file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", job.FileName),
	})
}
