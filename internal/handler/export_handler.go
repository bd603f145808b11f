package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ash-tracker/behavior-api/internal/models"
	"github.com/ash-tracker/behavior-api/internal/service"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
	"github.com/ash-tracker/behavior-api/pkg/response"
)

// ExportHandler exposes export generation and download endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ExportRequest is the generation payload. Dates accept RFC3339 or bare
// yyyy-MM-dd; a bare end date covers its whole day.
type ExportRequest struct {
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	UseAnimalName      *bool  `json:"use_animal_name"`
	IncludeFullDetails bool   `json:"include_full_details"`
	Format             string `json:"format"`
}

func (r ExportRequest) toOptions() (models.ExportOptions, error) {
	opts := models.ExportOptions{
		IncludeFullDetails: r.IncludeFullDetails,
		UseAnimalName:      true,
		Format:             models.ExportFormat(r.Format),
	}
	if r.UseAnimalName != nil {
		opts.UseAnimalName = *r.UseAnimalName
	}
	start, err := parseTimeParam(r.StartDate, false)
	if err != nil {
		return opts, err
	}
	end, err := parseTimeParam(r.EndDate, true)
	if err != nil {
		return opts, err
	}
	opts.StartDate = start
	opts.EndDate = end
	return opts, nil
}

// Summary godoc
// @Summary Preview export contents
// @Tags Exports
// @Produce json
// @Param id path string true "Child ID"
// @Param from query string false "Inclusive lower bound (RFC3339 or yyyy-MM-dd)"
// @Param to query string false "Inclusive upper bound (RFC3339 or yyyy-MM-dd)"
// @Success 200 {object} response.Envelope
// @Router /children/{id}/export/summary [get]
func (h *ExportHandler) Summary(c *gin.Context) {
	var opts models.ExportOptions
	start, err := parseTimeParam(c.Query("from"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	end, err := parseTimeParam(c.Query("to"), true)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	opts.StartDate = start
	opts.EndDate = end

	summary, err := h.exports.Summary(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Create godoc
// @Summary Generate an export file
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Child ID"
// @Param payload body ExportRequest true "Export options"
// @Success 201 {object} response.Envelope
// @Router /children/{id}/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	opts, err := req.toOptions()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	_, relPath, _, err := h.exports.ParseToken(token, false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "export link is invalid or expired"))
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "export file no longer exists"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file"))
		return
	}

	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), exportMimeType(filename), file, nil)
}

func exportMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
