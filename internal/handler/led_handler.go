// internal/handler/led_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"led-service/internal/model"
	"led-service/internal/service"
	"led-service/internal/utils"
)

// LedHandler handles LED control HTTP requests
type LedHandler struct {
	ledService *service.LedService
	logger     *utils.ServiceLogger
}

// NewLedHandler creates a new LED handler
func NewLedHandler(ledService *service.LedService, logger *zap.Logger) *LedHandler {
	return &LedHandler{
		ledService: ledService,
		logger:     utils.NewServiceLogger(logger, "led-handler"),
	}
}

// RegisterRoutes registers LED routes
func (h *LedHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/led", h.ControlLed)

	boards := router.Group("/boards")
	{
		boards.GET("", h.ListBoards)
		boards.GET("/:id", h.GetBoard)
	}
}

// ControlLed sends one LED action to a board
// @Summary Control the LED of a board
// @Description Resolve the flags to one action, send it over serial and wait for the reply
// @Tags LED
// @Accept json
// @Produce json
// @Param request body model.ControlRequest true "Target and LED flags"
// @Success 200 {object} utils.APIResponse{data=model.ControlResult} "Command sent"
// @Failure 400 {object} utils.APIResponse "Invalid flags"
// @Failure 404 {object} utils.APIResponse "Unknown board"
// @Failure 503 {object} utils.APIResponse "Serial port unavailable"
// @Router /led [post]
func (h *LedHandler) ControlLed(c *gin.Context) {
	var req model.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.ledService.ControlLed(c.Request.Context(), &req)
	if err != nil {
		status := utils.StatusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("LED control failed", zap.Error(err))
		}
		utils.ErrorResponse(c, status, "LED control failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, outcomeMessage(result.Outcome), result)
}

// ListBoards lists every known board
// @Summary List boards
// @Tags Boards
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.Board} "Boards retrieved successfully"
// @Router /boards [get]
func (h *LedHandler) ListBoards(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Boards retrieved successfully", h.ledService.ListBoards())
}

// GetBoard returns one board definition
// @Summary Get board
// @Tags Boards
// @Produce json
// @Param id path string true "Board ID"
// @Success 200 {object} utils.APIResponse{data=model.Board} "Board retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Board not found"
// @Router /boards/{id} [get]
func (h *LedHandler) GetBoard(c *gin.Context) {
	b, err := h.ledService.GetBoard(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Board not found", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Board retrieved successfully", b)
}

func outcomeMessage(outcome model.ResponseOutcome) string {
	switch outcome.Status {
	case model.ResponseAccepted:
		return "Command accepted"
	case model.ResponseRejected:
		return "Command rejected by device"
	default:
		return "No reply from device"
	}
}
