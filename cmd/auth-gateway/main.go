package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth-gateway/internal/adapter/gateway"
	adapterhandler "auth-gateway/internal/adapter/handler"
	"auth-gateway/internal/domain"
	"auth-gateway/internal/infrastructure/postgres"
	"auth-gateway/internal/infrastructure/redisstore"
	infratoken "auth-gateway/internal/infrastructure/token"
	"auth-gateway/internal/usecase"

	"auth-gateway/config"
	appmiddleware "auth-gateway/middleware"
	"auth-gateway/utils/logger"
	"auth-gateway/utils/otel"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Best effort; production config comes from the real environment
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
	}

	// Initialize structured logger
	logger.Init(otelCfg.Enabled)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"kratos_url", cfg.KratosURL,
		"port", cfg.Port,
		"token_cache_ttl", cfg.TokenCacheTTL,
		"profile_cache_ttl", cfg.ProfileCacheTTL,
		"allow_unprovisioned", cfg.AllowUnprovisioned)

	// Infrastructure
	redisClient, err := redisstore.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := postgres.NewConnection(ctx, cfg.DatabaseURL, slog.Default())
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db.Pool(), slog.Default()); err != nil {
		slog.ErrorContext(ctx, "failed to migrate database", "error", err)
		os.Exit(1)
	}

	revocationStore := redisstore.NewRevocationStore(redisClient)
	tokenCache := redisstore.NewTokenCache(redisClient)
	profileCache := redisstore.NewProfileCache(redisClient)
	sessionRegistry := redisstore.NewSessionRegistry(redisClient, cfg.SessionTTL)
	userRepository := postgres.NewUserRepository(db.Pool(), slog.Default())

	kratosGateway := gateway.NewKratosGateway(cfg.KratosURL, cfg.KratosAdminURL, cfg.VerifyTimeout)

	jwtIssuer, err := infratoken.NewJWTIssuer(infratoken.JWTConfig{
		Secret:   cfg.BackendTokenSecret,
		Issuer:   cfg.BackendTokenIssuer,
		Audience: cfg.BackendTokenAudience,
		TTL:      cfg.BackendTokenTTL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to configure backend token issuer", "error", err)
		os.Exit(1)
	}

	// Usecases
	sessionsUC := usecase.NewManageSessions(sessionRegistry, revocationStore, profileCache, slog.Default())
	claimRepairer := usecase.NewClaimRepairer(userRepository, kratosGateway, sessionsUC, slog.Default())
	resolveRoleUC := usecase.NewResolveRole(profileCache, userRepository, claimRepairer,
		cfg.ProfileCacheTTL, cfg.AllowUnprovisioned, slog.Default())
	authenticateUC := usecase.NewAuthenticate(kratosGateway, revocationStore, tokenCache,
		resolveRoleUC, sessionRegistry, userRepository, cfg.TokenCacheTTL, slog.Default())
	setRoleUC := usecase.NewSetRole(userRepository, kratosGateway, profileCache, claimRepairer, sessionsUC, slog.Default())
	usersUC := usecase.NewManageUsers(userRepository, kratosGateway, sessionsUC, slog.Default())

	// Handlers
	meHandler := adapterhandler.NewMeHandler()
	sessionHandler := adapterhandler.NewSessionHandler(sessionsUC)
	adminHandler := adapterhandler.NewAdminHandler(usersUC, setRoleUC)
	tokenHandler := adapterhandler.NewTokenHandler(jwtIssuer)
	internalHandler := adapterhandler.NewInternalHandler(claimRepairer)
	healthHandler := adapterhandler.NewHealthHandler()

	auth := appmiddleware.NewAuth(authenticateUC, slog.Default())

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = adapterhandler.NewValidator()

	// Security middleware
	e.Use(appmiddleware.SecurityHeaders())

	// OpenTelemetry tracing
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	// Request logging
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	// Rate limiters per endpoint group
	authRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst)
	adminRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.AdminRateLimit), cfg.AdminRateBurst)
	internalRL := appmiddleware.NewRateLimiter(10.0/60.0, 3) // 10 req/min

	e.GET("/health", healthHandler.Handle)

	// Authenticated routes
	authenticated := e.Group("", auth.RequireAuth(), authRL.Middleware())
	authenticated.GET("/me", meHandler.Handle)
	authenticated.GET("/sessions", sessionHandler.HandleList)
	authenticated.DELETE("/sessions", sessionHandler.HandleRevokeAll)
	authenticated.DELETE("/sessions/:fingerprint", sessionHandler.HandleRevokeOne)
	authenticated.POST("/token/backend", tokenHandler.HandleBackendToken)

	// Admin routes
	adminGroup := e.Group("/admin",
		auth.RequireAuth(),
		auth.RequireRole(domain.RoleAdmin),
		adminRL.Middleware(),
	)
	adminGroup.GET("/users", adminHandler.HandleList)
	adminGroup.POST("/users", adminHandler.HandleCreate)
	adminGroup.PATCH("/users/:subject_id/role", adminHandler.HandleSetRole)
	adminGroup.DELETE("/users/:subject_id", adminHandler.HandleDelete)
	adminGroup.POST("/users/:subject_id/revoke", adminHandler.HandleRevokeSessions)

	// Internal routes (protected by shared secret)
	internalGroup := e.Group("/internal",
		internalRL.Middleware(),
		appmiddleware.InternalAuth(cfg.InternalSharedSecret),
	)
	internalGroup.POST("/claims/resync", internalHandler.HandleClaimResync)

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	slog.InfoContext(ctx, "starting auth-gateway server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return claimRepairer.Run(gCtx)
	})

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited properly")
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8888"
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}
	return nil
}
