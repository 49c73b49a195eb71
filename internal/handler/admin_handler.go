package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

// AdminHandler serves officer-only event and attendance code management.
type AdminHandler struct {
	attendanceService service.AttendanceService
	logger            *zap.Logger
}

func NewAdminHandler(attendanceService service.AttendanceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{attendanceService: attendanceService, logger: logger}
}

type EventRequest struct {
	Name        string     `json:"name" binding:"required,max=256"`
	Description string     `json:"description"`
	Location    string     `json:"location" binding:"max=256"`
	PointsValue int        `json:"points_value" binding:"min=0"`
	StartTime   time.Time  `json:"start_time" binding:"required"`
	EndTime     *time.Time `json:"end_time"`
}

func (r EventRequest) input() service.EventInput {
	return service.EventInput{
		Name:        r.Name,
		Description: r.Description,
		Location:    r.Location,
		PointsValue: r.PointsValue,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

type ToggleCodeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *AdminHandler) CreateEvent(c *gin.Context) {
	adminID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	event, err := h.attendanceService.CreateEvent(c.Request.Context(), adminID, req.input())
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, event)
}

func (h *AdminHandler) ListEvents(c *gin.Context) {
	events, err := h.attendanceService.ListEvents(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, events)
}

func (h *AdminHandler) UpdateEvent(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	event, err := h.attendanceService.UpdateEvent(c.Request.Context(), eventID, req.input())
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, event)
}

func (h *AdminHandler) EndEvent(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	event, err := h.attendanceService.EndEvent(c.Request.Context(), eventID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, event)
}

func (h *AdminHandler) GenerateCode(c *gin.Context) {
	adminID, ok := requireUserID(c)
	if !ok {
		return
	}
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	code, err := h.attendanceService.GenerateCode(c.Request.Context(), eventID, adminID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, code)
}

func (h *AdminHandler) GetCode(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	code, err := h.attendanceService.GetCode(c.Request.Context(), eventID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, code)
}

func (h *AdminHandler) ToggleCode(c *gin.Context) {
	eventID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req ToggleCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	code, err := h.attendanceService.ToggleCode(c.Request.Context(), eventID, *req.Active)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, code)
}
