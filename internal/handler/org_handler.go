package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/service"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/response"
)

// OrgHandler exposes organization management endpoints.
type OrgHandler struct {
	orgs *service.OrgService
}

// NewOrgHandler constructs OrgHandler.
func NewOrgHandler(orgs *service.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

// List godoc
// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *OrgHandler) List(c *gin.Context) {
	var filter models.OrganizationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	orgs, pagination, err := h.orgs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orgs, pagination)
}

// Options godoc
// @Summary List organizations as options
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizations/options [get]
func (h *OrgHandler) Options(c *gin.Context) {
	options, err := h.orgs.Options(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Get godoc
// @Summary Get organization with staff
// @Tags Organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id} [get]
func (h *OrgHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid organization id"))
		return
	}
	org, err := h.orgs.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// Create godoc
// @Summary Create organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrganizationRequest true "Organization payload"
// @Success 201 {object} response.Envelope
// @Router /organizations [post]
func (h *OrgHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	org, err := h.orgs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// Update godoc
// @Summary Update organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization ID"
// @Param payload body dto.UpdateOrganizationRequest true "Organization payload"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id} [patch]
func (h *OrgHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid organization id"))
		return
	}
	var req dto.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	org, err := h.orgs.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// Delete godoc
// @Summary Delete organization
// @Tags Organizations
// @Produce json
// @Param id path int true "Organization ID"
// @Success 204
// @Router /organizations/{id} [delete]
func (h *OrgHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid organization id"))
		return
	}
	if err := h.orgs.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
