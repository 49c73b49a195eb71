package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/crypto"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

type AttendanceHandler struct {
	attendanceService service.AttendanceService
	codeLength        int
	logger            *zap.Logger
}

func NewAttendanceHandler(attendanceService service.AttendanceService, codeLength int, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendanceService: attendanceService, codeLength: codeLength, logger: logger}
}

type SubmitAttendanceRequest struct {
	Code string `json:"code" binding:"required,numeric"`
}

func (h *AttendanceHandler) Submit(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SubmitAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || !crypto.IsNumericCode(req.Code, h.codeLength) {
		response.Reason(c, http.StatusBadRequest, string(service.ReasonInvalidCode),
			fmt.Sprintf("code must be %d digits", h.codeLength))
		return
	}

	result, err := h.attendanceService.SubmitAttendance(c.Request.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, result)
}

func (h *AttendanceHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	records, err := h.attendanceService.History(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, records)
}

func (h *AttendanceHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.attendanceService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, entries)
}
