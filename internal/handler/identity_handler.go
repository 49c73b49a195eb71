package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

type IdentityHandler struct {
	identityService service.IdentityService
	logger          *zap.Logger
}

func NewIdentityHandler(identityService service.IdentityService, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{identityService: identityService, logger: logger}
}

type OnboardingRequest struct {
	FirstName       string `json:"first_name" binding:"required,max=128"`
	LastName        string `json:"last_name" binding:"required,max=128"`
	InstitutionalID string `json:"institutional_id" binding:"required,max=32"`
}

func (h *IdentityHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.identityService.GetIdentity(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, user)
}

func (h *IdentityHandler) CompleteOnboarding(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.identityService.CompleteOnboarding(c.Request.Context(), userID, service.OnboardingInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		InstitutionalID: req.InstitutionalID,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, user)
}

// CheckInstitutionalID reports whether an institutional ID is already
// registered without revealing who holds it.
func (h *IdentityHandler) CheckInstitutionalID(c *gin.Context) {
	holder, err := h.identityService.CheckInstitutionalIDExists(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, gin.H{"exists": holder != nil})
}
