package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Provider string `json:"provider" binding:"required"`
}

type LinkRequest struct {
	Token string `json:"token" binding:"required"`
}

// Register signs in with a provider-verified email. When a bearer token is
// presented, the sign-in is linked onto that identity instead.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.authService.Register(
		c.Request.Context(),
		req.Email,
		model.Provider(req.Provider),
		optionalUserID(c),
	)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	if result.Status == service.AuthLinkRequired {
		response.Accepted(c, result)
		return
	}
	response.Success(c, result)
}

func (h *AuthHandler) Link(c *gin.Context) {
	var req LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.authService.CompleteLink(c.Request.Context(), req.Token)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, result)
}
