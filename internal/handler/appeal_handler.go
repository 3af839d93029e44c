package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qongirat/appeals-api/internal/dto"
	"github.com/qongirat/appeals-api/internal/models"
	"github.com/qongirat/appeals-api/internal/service"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/response"
)

// AppealHandler exposes appeal registration and workflow endpoints.
type AppealHandler struct {
	appeals  *service.AppealService
	workflow *service.WorkflowService
	exports  *service.ExportService
}

// NewAppealHandler constructs AppealHandler.
func NewAppealHandler(appeals *service.AppealService, workflow *service.WorkflowService, exports *service.ExportService) *AppealHandler {
	return &AppealHandler{appeals: appeals, workflow: workflow, exports: exports}
}

func parseAppealQuery(c *gin.Context) dto.AppealListQuery {
	var query dto.AppealListQuery
	query.Status = strings.TrimSpace(c.Query("status"))
	query.Search = strings.TrimSpace(c.Query("search"))
	if orgID, err := strconv.ParseInt(c.Query("orgId"), 10, 64); err == nil {
		query.OrgID = &orgID
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		query.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		query.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}
	return query
}

func queryToFilter(query dto.AppealListQuery) models.AppealFilter {
	return models.AppealFilter{
		OrgID:    query.OrgID,
		Status:   query.Status,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
}

// List godoc
// @Summary List appeals
// @Tags Appeals
// @Produce json
// @Param status query string false "Status or the done meta value"
// @Param orgId query int false "Filter by organization"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param search query string false "Appeal id or citizen name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /appeals [get]
func (h *AppealHandler) List(c *gin.Context) {
	appeals, pagination, err := h.appeals.List(c.Request.Context(), claimsFromContext(c), parseAppealQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeals, pagination)
}

// Create godoc
// @Summary Register an appeal
// @Tags Appeals
// @Accept json
// @Produce json
// @Param payload body dto.CreateAppealRequest true "Appeal payload"
// @Success 201 {object} response.Envelope
// @Router /appeals [post]
func (h *AppealHandler) Create(c *gin.Context) {
	var req dto.CreateAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appeal, err := h.appeals.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appeal)
}

// Get godoc
// @Summary Get appeal detail
// @Tags Appeals
// @Produce json
// @Param id path int true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Router /appeals/{id} [get]
func (h *AppealHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	detail, err := h.appeals.Get(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit appeal details
// @Description Administrative edit; the status never changes here
// @Tags Appeals
// @Accept json
// @Produce json
// @Param id path int true "Appeal ID"
// @Param payload body dto.UpdateAppealRequest true "Appeal payload"
// @Success 200 {object} response.Envelope
// @Router /appeals/{id} [patch]
func (h *AppealHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	var req dto.UpdateAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appeal, err := h.appeals.Update(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// History godoc
// @Summary List appeal history
// @Tags Appeals
// @Produce json
// @Param id path int true "Appeal ID"
// @Success 200 {object} response.Envelope
// @Router /appeals/{id}/history [get]
func (h *AppealHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	history, err := h.appeals.History(c.Request.Context(), claimsFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Answer godoc
// @Summary Submit organization answer
// @Description Organization-side workflow transition with attached answer
// @Tags Appeals
// @Accept json
// @Produce json
// @Param id path int true "Appeal ID"
// @Param payload body dto.AnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appeals/{id}/answer [post]
func (h *AppealHandler) Answer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appeal, err := h.workflow.SubmitAnswer(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// Review godoc
// @Summary Apply review verdict
// @Description Authority-side workflow transition
// @Tags Appeals
// @Accept json
// @Produce json
// @Param id path int true "Appeal ID"
// @Param payload body dto.ReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /appeals/{id}/review [post]
func (h *AppealHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	appeal, err := h.workflow.Review(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appeal, nil)
}

// PDF godoc
// @Summary Render appeal as PDF
// @Tags Appeals
// @Produce application/pdf
// @Param id path int true "Appeal ID"
// @Success 200 {file} binary
// @Router /appeals/{id}/pdf [get]
func (h *AppealHandler) PDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid appeal id"))
		return
	}
	data, err := h.exports.AppealPDF(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=appeal-%d.pdf", id))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Export godoc
// @Summary Export appeals as CSV
// @Tags Appeals
// @Produce text/csv
// @Param status query string false "Status or the done meta value"
// @Param orgId query int false "Filter by organization"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /appeals/export [get]
func (h *AppealHandler) Export(c *gin.Context) {
	query := parseAppealQuery(c)
	filter := queryToFilter(query)
	data, err := h.exports.AppealsCSV(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=appeals.csv")
	c.Data(http.StatusOK, "text/csv", data)
}
