package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/crypto"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

type VerificationHandler struct {
	verificationService service.VerificationService
	codeLength          int
	clock               service.Clock
	logger              *zap.Logger
}

func NewVerificationHandler(verificationService service.VerificationService, codeLength int, clock service.Clock, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService, codeLength: codeLength, clock: clock, logger: logger}
}

type RequestChallengeRequest struct {
	Email string `json:"email" binding:"required"`
}

type SubmitCodeRequest struct {
	Code string `json:"code" binding:"required,numeric"`
}

func (h *VerificationHandler) Request(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req RequestChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.verificationService.RequestChallenge(c.Request.Context(), userID, req.Email); err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"sent": true})
}

func (h *VerificationHandler) Verify(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !crypto.IsNumericCode(req.Code, h.codeLength) {
		response.Reason(c, http.StatusBadRequest, string(service.ReasonInvalidVerificationCode),
			fmt.Sprintf("code must be %d digits", h.codeLength))
		return
	}

	result, err := h.verificationService.SubmitAttempt(c.Request.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	switch result.Outcome {
	case service.OutcomeVerified:
		response.Success(c, result)
	case service.OutcomeInvalidCode:
		response.ReasonWithData(c, http.StatusBadRequest,
			string(service.ReasonInvalidVerificationCode), "incorrect verification code", result)
	case service.OutcomeRateLimited:
		if result.RetryAfter != nil {
			setRetryAfter(c, result.RetryAfter.Sub(h.clock.Now()))
		}
		response.ReasonWithData(c, http.StatusTooManyRequests,
			string(service.ReasonRateLimited), service.ErrRateLimited.Error(), result)
	case service.OutcomeAccountPurged:
		response.ReasonWithData(c, http.StatusGone,
			string(service.ReasonAccountPurged), "account removed after too many failed attempts", result)
	default:
		h.logger.Error("unknown verification outcome", zap.String("outcome", string(result.Outcome)))
		response.Reason(c, http.StatusInternalServerError, string(service.ReasonInternal), "internal server error")
	}
}

// Abandon discards the caller's identity if it never finished verification.
// It always answers 204; cleanup failures are only logged.
func (h *VerificationHandler) Abandon(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	h.verificationService.CleanupAbandoned(c.Request.Context(), userID)
	c.Status(http.StatusNoContent)
}
