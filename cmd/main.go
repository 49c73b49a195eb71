package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/MLH-TTU/MLH-website-sub002/internal/config"
	"github.com/MLH-TTU/MLH-website-sub002/internal/handler"
	"github.com/MLH-TTU/MLH-website-sub002/internal/model"
	"github.com/MLH-TTU/MLH-website-sub002/internal/repository"
	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	jwtpkg "github.com/MLH-TTU/MLH-website-sub002/pkg/jwt"
)

type repositories struct {
	users        repository.UserRepository
	verification repository.VerificationRepository
	events       repository.EventRepository
	codes        repository.AttendanceCodeRepository
	attendance   repository.AttendanceRepository
	linking      repository.LinkingTokenRepository
}

func main() {
	// 1. Load configuration
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize storage
	repos, err := openRepositories(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}

	// 4. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 5. Initialize notifier
	var notifier service.Notifier
	if cfg.SMTP.Enabled {
		notifier, err = service.NewSMTPNotifier(cfg.SMTP)
		if err != nil {
			logger.Fatal("failed to init smtp notifier", zap.Error(err))
		}
		logger.Info("SMTP notifier initialized", zap.String("host", cfg.SMTP.Host))
	} else {
		notifier = service.NewLogNotifier(logger)
		logger.Warn("smtp disabled, codes and linking tokens will not be delivered")
	}

	// 6. Initialize JWT manager
	if cfg.JWT.SigningKey == "" {
		logger.Fatal("jwt.signing_key is required")
	}
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 7. Initialize services
	clock := service.SystemClock{}
	generator := service.NewSecureGenerator()
	identityService := service.NewIdentityService(cfg.Linking, repos.users, repos.linking, generator, clock, logger)
	verificationService := service.NewVerificationService(
		cfg.Verification, repos.users, repos.verification, stateStore,
		notifier, generator, clock, logger,
	)
	attendanceService := service.NewAttendanceService(
		cfg.Attendance, repos.events, repos.codes, repos.attendance, repos.users,
		generator, clock, logger,
	)
	authService := service.NewAuthService(identityService, notifier, jwtManager, logger)

	// 8. Initialize handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	verificationHandler := handler.NewVerificationHandler(verificationService, cfg.Verification.CodeLength, clock, logger)
	identityHandler := handler.NewIdentityHandler(identityService, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, cfg.Attendance.CodeLength, logger)
	adminHandler := handler.NewAdminHandler(attendanceService, logger)

	// 9. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager,
		authHandler, verificationHandler, identityHandler, attendanceHandler, adminHandler)

	// 10. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 11. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}

func openRepositories(cfg *config.Config, logger *zap.Logger) (*repositories, error) {
	switch cfg.Database.Backend {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		db := repository.NewMemoryDB()
		return &repositories{
			users:        repository.NewMemoryUserRepository(db),
			verification: repository.NewMemoryVerificationRepository(db),
			events:       repository.NewMemoryEventRepository(db),
			codes:        repository.NewMemoryAttendanceCodeRepository(db),
			attendance:   repository.NewMemoryAttendanceRepository(db),
			linking:      repository.NewMemoryLinkingTokenRepository(db),
		}, nil
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto-migrate: %w", err)
			}
			logger.Info("database migration completed")
		}
		return &repositories{
			users:        repository.NewPGUserRepository(db),
			verification: repository.NewPGVerificationRepository(db),
			events:       repository.NewPGEventRepository(db),
			codes:        repository.NewPGAttendanceCodeRepository(db),
			attendance:   repository.NewPGAttendanceRepository(db),
			linking:      repository.NewPGLinkingTokenRepository(db),
		}, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}
}
