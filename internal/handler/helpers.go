package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/handler/middleware"
	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	claims, ok := c.Value(middleware.ContextKeyUserClaims).(*jwtpkg.Claims)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return uuid.Parse(claims.Subject)
}

// optionalUserID returns nil for anonymous requests.
func optionalUserID(c *gin.Context) *uuid.UUID {
	id, err := getUserIDFromContext(c)
	if err != nil {
		return nil
	}
	return &id
}

// requireUserID writes a 401 and returns false when no identity is attached.
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "not authenticated")
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

var reasonStatus = map[service.Reason]int{
	service.ReasonInvalidDomain:           http.StatusBadRequest,
	service.ReasonInvalidEmail:            http.StatusBadRequest,
	service.ReasonInvalidProvider:         http.StatusBadRequest,
	service.ReasonInvalidEvent:            http.StatusBadRequest,
	service.ReasonInvalidInstitutionalID:  http.StatusBadRequest,
	service.ReasonInvalidVerificationCode: http.StatusBadRequest,
	service.ReasonInvalidCode:             http.StatusBadRequest,
	service.ReasonEventNotStarted:         http.StatusBadRequest,
	service.ReasonEventEnded:              http.StatusBadRequest,
	service.ReasonEmailNotVerified:        http.StatusBadRequest,
	service.ReasonLinkSameProvider:        http.StatusBadRequest,
	service.ReasonChallengeExpired:        http.StatusGone,
	service.ReasonTokenExpired:            http.StatusGone,
	service.ReasonNoPendingVerification:   http.StatusNotFound,
	service.ReasonEventNotFound:           http.StatusNotFound,
	service.ReasonNoAttendanceCode:        http.StatusNotFound,
	service.ReasonTokenNotFound:           http.StatusNotFound,
	service.ReasonUserNotFound:            http.StatusNotFound,
	service.ReasonAlreadyVerified:         http.StatusConflict,
	service.ReasonInstitutionalEmailTaken: http.StatusConflict,
	service.ReasonEventAlreadyStarted:     http.StatusConflict,
	service.ReasonCodeConflict:            http.StatusConflict,
	service.ReasonAlreadyAttended:         http.StatusConflict,
	service.ReasonDuplicateIdentity:       http.StatusConflict,
	service.ReasonInstitutionalIDTaken:    http.StatusConflict,
	service.ReasonOnboardingAlreadyDone:   http.StatusConflict,
	service.ReasonTokenAlreadyUsed:        http.StatusConflict,
	service.ReasonRateLimited:             http.StatusTooManyRequests,
	service.ReasonTooManyRequests:         http.StatusTooManyRequests,
	service.ReasonUserDisabled:            http.StatusForbidden,
	service.ReasonCodeGenerationFailed:    http.StatusServiceUnavailable,
}

// writeServiceError maps an engine error onto the response envelope. Errors
// without a reason are logged and reported as a bare internal error so store
// details never reach the client.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error) {
	reason := service.ReasonOf(err)
	status, ok := reasonStatus[reason]
	if !ok {
		logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		response.Reason(c, http.StatusInternalServerError, string(service.ReasonInternal), "internal server error")
		return
	}
	var throttled *service.ThrottledError
	if errors.As(err, &throttled) {
		setRetryAfter(c, throttled.RetryAfter)
	}
	response.Reason(c, status, string(reason), err.Error())
}

// setRetryAfter writes d as whole seconds, never less than one.
func setRetryAfter(c *gin.Context, d time.Duration) {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
}
