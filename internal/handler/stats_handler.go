package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qongirat/appeals-api/internal/service"
	"github.com/qongirat/appeals-api/pkg/response"
)

// StatsHandler exposes aggregated appeal statistics.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Summary godoc
// @Summary Appeal statistics summary
// @Description Organization staff receive a summary scoped to their own
// @Description organization; authority accounts see the city-wide totals.
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /statistics [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	summary, err := h.stats.Summary(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// TopOrganizations godoc
// @Summary Organizations ranked by appeal volume
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /statistics/organizations [get]
func (h *StatsHandler) TopOrganizations(c *gin.Context) {
	top, err := h.stats.TopOrganizations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, top, nil)
}
