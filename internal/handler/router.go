package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
	"github.com/MLH-TTU/MLH-website-sub002/internal/handler/middleware"
	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	authHandler *AuthHandler,
	verificationHandler *VerificationHandler,
	identityHandler *IdentityHandler,
	attendanceHandler *AttendanceHandler,
	adminHandler *AdminHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware. RequestLogger wraps Recovery so panics are logged as 500s.
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS))
	}

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", middleware.OptionalJWTAuth(jwtManager), authHandler.Register)
		auth.POST("/link", authHandler.Link)
	}
	r.GET("/api/v1/leaderboard", attendanceHandler.Leaderboard)

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.GET("/me", identityHandler.Me)

		protected.POST("/verification/request", verificationHandler.Request)
		protected.POST("/verification/verify", verificationHandler.Verify)
		protected.POST("/verification/abandon", verificationHandler.Abandon)

		protected.POST("/onboarding", identityHandler.CompleteOnboarding)
		protected.GET("/onboarding/institutional-id/:id", identityHandler.CheckInstitutionalID)

		protected.POST("/attendance", attendanceHandler.Submit)
		protected.GET("/attendance", attendanceHandler.History)
	}

	// Admin routes (JWT + admin check)
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuth(jwtManager))
	admin.Use(middleware.AdminAuth(cfg.Admin.UserIDs))
	{
		admin.POST("/events", adminHandler.CreateEvent)
		admin.GET("/events", adminHandler.ListEvents)
		admin.PUT("/events/:id", adminHandler.UpdateEvent)
		admin.POST("/events/:id/end", adminHandler.EndEvent)

		admin.POST("/events/:id/code", adminHandler.GenerateCode)
		admin.GET("/events/:id/code", adminHandler.GetCode)
		admin.PUT("/events/:id/code", adminHandler.ToggleCode)
	}

	return r
}
