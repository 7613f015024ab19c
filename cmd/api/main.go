package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/attachment"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/config"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/handler"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/repository/postgres"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/worker"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	groupRepo := postgres.NewGroupRepository(pool)
	membershipRepo := postgres.NewMembershipRepository(pool)
	expenseRepo := postgres.NewExpenseRepository(pool)
	settlementRepo := postgres.NewSettlementRepository(pool)
	recurringRepo := postgres.NewRecurringRuleRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	apiTokenRepo := postgres.NewAPITokenRepository(pool)
	attachmentRepo := postgres.NewAttachmentRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)

	// Balance cache shared by every write path that must invalidate it
	cache := balancecache.New(cfg.BalanceCacheTTL)

	// Initialize services
	authService := service.NewAuthService(userRepo)
	tokenService := service.NewTokenService(tokenRepo, userRepo)
	profileService := service.NewProfileService(userRepo)
	lifecycleService := service.NewAccountLifecycleService(userRepo)
	notificationService := service.NewNotificationService(notificationRepo)
	apiTokenService := service.NewAPITokenService(apiTokenRepo)
	groupService := service.NewGroupService(groupRepo, membershipRepo, notificationRepo, cache)
	membershipService := service.NewMembershipService(groupRepo, membershipRepo, cache)
	expenseService := service.NewExpenseService(expenseRepo, membershipRepo, groupRepo, notificationRepo, cache)
	settlementService := service.NewSettlementService(settlementRepo, membershipRepo, groupRepo, notificationRepo, cache)
	recurringService := service.NewRecurringService(recurringRepo, expenseRepo, membershipRepo, groupRepo, notificationRepo, cache)

	balanceEngine := service.NewBalanceEngine(groupRepo, membershipRepo, expenseRepo, settlementRepo)
	balanceService := service.NewBalanceService(balanceEngine, cache)

	// Attachment object-store collaborator is best-effort: a
	// deployment without S3 credentials configured still serves every other
	// route, it just can't accept receipt uploads.
	var attachmentHandler *handler.AttachmentHandler
	if cfg.Storage.BucketName != "" {
		store, err := attachment.NewS3Store(ctx, cfg.Storage, attachmentRepo)
		if err != nil {
			log.Warn().Err(err).Msg("attachment storage unavailable, uploads disabled")
		} else {
			attachmentService := service.NewAttachmentService(store, attachmentRepo)
			attachmentHandler = handler.NewAttachmentHandler(attachmentService, membershipService)
		}
	}
	if attachmentHandler == nil {
		attachmentHandler = handler.NewAttachmentHandler(nil, membershipService)
	}

	// Initialize auth middleware (Auth0 JWT + API token, combined)
	jwtAuth, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authUserProvider{authService})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	apiTokenAuth := middleware.NewAPITokenAuthMiddleware(apiTokenValidator{apiTokenService})
	combinedAuth := middleware.CombinedAuth(jwtAuth, apiTokenAuth)
	adminAuth := middleware.AdminAuth(cfg.AdminAPIKey)

	generalLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimit.GeneralRequestsPerMinute, cfg.RateLimit.GeneralRequestsPerMinute/4+1)
	defer generalLimiter.Stop()

	// Initialize handlers
	handlers := &handler.Handlers{
		Auth:         handler.NewAuthHandler(authService, tokenService),
		Profile:      handler.NewProfileHandler(profileService, lifecycleService),
		Group:        handler.NewGroupHandler(groupService, membershipService),
		Expense:      handler.NewExpenseHandler(expenseService, membershipService),
		Settlement:   handler.NewSettlementHandler(settlementService, membershipService, groupService),
		Recurring:    handler.NewRecurringHandler(recurringService, membershipService),
		Balance:      handler.NewBalanceHandler(balanceService, membershipService),
		Notification: handler.NewNotificationHandler(notificationService),
		APIToken:     handler.NewAPITokenHandler(apiTokenService),
		Attachment:   attachmentHandler,
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// General rate limiting (applies to API-token-authenticated callers). It
	// runs inside the auth middleware, which is what marks a request as
	// API-token-authenticated.
	rateLimit := middleware.RateLimitMiddleware(generalLimiter)
	memberAuth := func(next echo.HandlerFunc) echo.HandlerFunc {
		return combinedAuth(rateLimit(next))
	}

	// Register API routes
	handler.RegisterRoutes(e, memberAuth, adminAuth, handlers)

	// Background workers
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	recurringWorker := worker.NewRecurringWorker(recurringService, worker.RealClock{}, log.Logger, cfg.RecurringSweepInterval)
	recurringWorker.Start(workerCtx)

	deletionSweep, err := worker.NewDeletionSweep(lifecycleService, log.Logger, "0 3 * * *")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule account deletion sweep")
	}
	deletionSweep.Start()

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorkers()
	recurringWorker.Stop()
	deletionSweep.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// authUserProvider adapts AuthService to middleware.UserProvider,
// resolving (and lazily creating) the core User behind an Auth0 subject.
type authUserProvider struct {
	authService *service.AuthService
}

func (p authUserProvider) GetUserByAuth0ID(auth0ID string) (uuid.UUID, error) {
	user, err := p.authService.GetUserByAuth0ID(auth0ID)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

// apiTokenValidator adapts APITokenService to middleware.APITokenValidator.
type apiTokenValidator struct {
	apiTokenService *service.APITokenService
}

func (v apiTokenValidator) ValidateToken(ctx context.Context, token string) (*domain.APIToken, error) {
	return v.apiTokenService.ValidateToken(ctx, token)
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
