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
	"github.com/qongirat/appeals-api/pkg/storage"
)

// IntakeHandler exposes the bot-facing intake endpoints.
type IntakeHandler struct {
	intakes      *service.IntakeService
	store        *storage.LocalStorage
	maxSizeBytes int64
}

// NewIntakeHandler constructs IntakeHandler.
func NewIntakeHandler(intakes *service.IntakeService, store *storage.LocalStorage, maxSizeBytes int64) *IntakeHandler {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 10 << 20
	}
	return &IntakeHandler{intakes: intakes, store: store, maxSizeBytes: maxSizeBytes}
}

func chatIDParam(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil || chatID == 0 {
		return 0, false
	}
	return chatID, true
}

// RegisterUser godoc
// @Summary Register a citizen from the bot
// @Tags Intake
// @Accept json
// @Produce json
// @Param payload body dto.RegisterIntakeUserRequest true "Registration payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /intake/users [post]
func (h *IntakeHandler) RegisterUser(c *gin.Context) {
	var req dto.RegisterIntakeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, created, err := h.intakes.RegisterUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, user)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// GetUser godoc
// @Summary Check citizen registration
// @Tags Intake
// @Produce json
// @Param chatId path int true "Telegram chat ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /intake/users/{chatId} [get]
func (h *IntakeHandler) GetUser(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chat id"))
		return
	}
	user, err := h.intakes.UserByChatID(c.Request.Context(), chatID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// CitizenAppeals godoc
// @Summary List a citizen's appeals
// @Description Lists intake records with promoted appeal statuses; answer
// @Description documents of completed appeals are re-sent to the chat
// @Tags Intake
// @Produce json
// @Param chatId path int true "Telegram chat ID"
// @Success 200 {object} response.Envelope
// @Router /intake/users/{chatId}/appeals [get]
func (h *IntakeHandler) CitizenAppeals(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid chat id"))
		return
	}
	result, err := h.intakes.CitizenAppeals(c.Request.Context(), chatID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateAppeal godoc
// @Summary Submit an appeal from the bot
// @Tags Intake
// @Accept multipart/form-data
// @Produce json
// @Param chat_id formData int true "Telegram chat ID"
// @Param full_name formData string true "Citizen full name"
// @Param phone formData string true "Phone number"
// @Param text formData string true "Appeal text"
// @Param file formData file false "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /intake/appeals [post]
func (h *IntakeHandler) CreateAppeal(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSizeBytes)

	var req dto.CreateIntakeAppealRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var filePath *string
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		if fileHeader.Size > h.maxSizeBytes {
			response.Error(c, appErrors.New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "attachment exceeds the upload limit"))
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read attachment"))
			return
		}
		defer file.Close() //nolint:errcheck

		stored, err := h.store.SaveStream(storage.UniqueName(fileHeader.Filename), file)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attachment"))
			return
		}
		filePath = &stored
	}

	intake, err := h.intakes.CreateAppeal(c.Request.Context(), req, filePath)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, intake)
}

// List godoc
// @Summary List intake appeals
// @Tags Intake
// @Produce json
// @Param status query string false "Filter by status"
// @Param chatId query int false "Filter by chat"
// @Param search query string false "Search by name or text"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /intake/appeals [get]
func (h *IntakeHandler) List(c *gin.Context) {
	var filter models.IntakeFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if status := c.Query("status"); status != "" {
		s := models.IntakeStatus(status)
		filter.Status = &s
	}
	if chatID, err := strconv.ParseInt(c.Query("chatId"), 10, 64); err == nil {
		filter.ChatID = &chatID
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	intakes, pagination, err := h.intakes.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intakes, pagination)
}

// Get godoc
// @Summary Get intake appeal detail
// @Tags Intake
// @Produce json
// @Param id path int true "Intake ID"
// @Success 200 {object} response.Envelope
// @Router /intake/appeals/{id} [get]
func (h *IntakeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake id"))
		return
	}
	intake, err := h.intakes.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intake, nil)
}

// Sort godoc
// @Summary Manually move an intake record to a status
// @Tags Intake
// @Accept json
// @Produce json
// @Param id path int true "Intake ID"
// @Param payload body dto.SortIntakeRequest true "Sort payload"
// @Success 200 {object} response.Envelope
// @Router /intake/appeals/{id}/sort [patch]
func (h *IntakeHandler) Sort(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake id"))
		return
	}
	var req dto.SortIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	intake, err := h.intakes.Sort(c.Request.Context(), claimsFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intake, nil)
}

// History godoc
// @Summary List intake status history
// @Tags Intake
// @Produce json
// @Param id path int true "Intake ID"
// @Success 200 {object} response.Envelope
// @Router /intake/appeals/{id}/history [get]
func (h *IntakeHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid intake id"))
		return
	}
	history, err := h.intakes.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
