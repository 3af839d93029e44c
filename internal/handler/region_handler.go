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

// RegionHandler exposes the sector and mahalla directories.
type RegionHandler struct {
	regions *service.RegionService
}

// NewRegionHandler constructs RegionHandler.
func NewRegionHandler(regions *service.RegionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

// ListMahallas godoc
// @Summary List mahallas
// @Tags Regions
// @Produce json
// @Param sectorId query int false "Filter by sector"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mahallas [get]
func (h *RegionHandler) ListMahallas(c *gin.Context) {
	var filter models.MahallaFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if sectorID, err := strconv.ParseInt(c.Query("sectorId"), 10, 64); err == nil {
		filter.SectorID = &sectorID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	mahallas, pagination, err := h.regions.ListMahallas(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mahallas, pagination)
}

// MahallaOptions godoc
// @Summary List mahallas as options
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mahallas/options [get]
func (h *RegionHandler) MahallaOptions(c *gin.Context) {
	options, err := h.regions.MahallaOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// GetMahalla godoc
// @Summary Get mahalla detail
// @Tags Regions
// @Produce json
// @Param id path int true "Mahalla ID"
// @Success 200 {object} response.Envelope
// @Router /mahallas/{id} [get]
func (h *RegionHandler) GetMahalla(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mahalla id"))
		return
	}
	mahalla, err := h.regions.GetMahalla(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mahalla, nil)
}

// CreateMahalla godoc
// @Summary Create mahalla
// @Tags Regions
// @Accept json
// @Produce json
// @Param payload body dto.CreateMahallaRequest true "Mahalla payload"
// @Success 201 {object} response.Envelope
// @Router /mahallas [post]
func (h *RegionHandler) CreateMahalla(c *gin.Context) {
	var req dto.CreateMahallaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mahalla, err := h.regions.CreateMahalla(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mahalla)
}

// UpdateMahalla godoc
// @Summary Update mahalla
// @Tags Regions
// @Accept json
// @Produce json
// @Param id path int true "Mahalla ID"
// @Param payload body dto.UpdateMahallaRequest true "Mahalla payload"
// @Success 200 {object} response.Envelope
// @Router /mahallas/{id} [patch]
func (h *RegionHandler) UpdateMahalla(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mahalla id"))
		return
	}
	var req dto.UpdateMahallaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mahalla, err := h.regions.UpdateMahalla(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mahalla, nil)
}

// DeleteMahalla godoc
// @Summary Delete mahalla
// @Tags Regions
// @Produce json
// @Param id path int true "Mahalla ID"
// @Success 204
// @Router /mahallas/{id} [delete]
func (h *RegionHandler) DeleteMahalla(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mahalla id"))
		return
	}
	if err := h.regions.DeleteMahalla(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSectors godoc
// @Summary List sectors
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sectors [get]
func (h *RegionHandler) ListSectors(c *gin.Context) {
	sectors, err := h.regions.ListSectors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sectors, nil)
}

// SectorOptions godoc
// @Summary List sectors as options
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sectors/options [get]
func (h *RegionHandler) SectorOptions(c *gin.Context) {
	options, err := h.regions.SectorOptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// CreateSector godoc
// @Summary Create sector
// @Tags Regions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSectorRequest true "Sector payload"
// @Success 201 {object} response.Envelope
// @Router /sectors [post]
func (h *RegionHandler) CreateSector(c *gin.Context) {
	var req dto.CreateSectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sector, err := h.regions.CreateSector(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sector)
}
