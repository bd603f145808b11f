package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ash-tracker/behavior-api/internal/models"
	"github.com/ash-tracker/behavior-api/internal/service"
	appErrors "github.com/ash-tracker/behavior-api/pkg/errors"
	"github.com/ash-tracker/behavior-api/pkg/response"
)

// ChildHandler exposes child profile endpoints.
type ChildHandler struct {
	children *service.ChildService
}

// NewChildHandler constructs ChildHandler.
func NewChildHandler(children *service.ChildService) *ChildHandler {
	return &ChildHandler{children: children}
}

// List godoc
// @Summary List child profiles
// @Tags Children
// @Produce json
// @Param includeArchived query bool false "Include archived profiles"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /children [get]
func (h *ChildHandler) List(c *gin.Context) {
	var filter models.ChildFilter
	filter.IncludeArchived = c.Query("includeArchived") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	children, pagination, err := h.children.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, pagination)
}

// Get godoc
// @Summary Get child profile
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{id} [get]
func (h *ChildHandler) Get(c *gin.Context) {
	child, err := h.children.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// Create godoc
// @Summary Create child profile
// @Tags Children
// @Accept json
// @Produce json
// @Param payload body service.CreateChildRequest true "Profile payload (the pseudonym is assigned server-side)"
// @Success 201 {object} response.Envelope
// @Router /children [post]
func (h *ChildHandler) Create(c *gin.Context) {
	var req service.CreateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	child, err := h.children.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, child)
}

// Update godoc
// @Summary Update child profile
// @Tags Children
// @Accept json
// @Produce json
// @Param id path string true "Child ID"
// @Param payload body service.UpdateChildRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /children/{id} [put]
func (h *ChildHandler) Update(c *gin.Context) {
	var req service.UpdateChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	child, err := h.children.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// Archive godoc
// @Summary Archive child profile
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{id}/archive [post]
func (h *ChildHandler) Archive(c *gin.Context) {
	child, err := h.children.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}

// Unarchive godoc
// @Summary Restore archived child profile
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Router /children/{id}/unarchive [post]
func (h *ChildHandler) Unarchive(c *gin.Context) {
	child, err := h.children.Unarchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, child, nil)
}
