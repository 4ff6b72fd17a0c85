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

	"authgate/internal/adapter/gateway"
	adapterhandler "authgate/internal/adapter/handler"
	"authgate/internal/domain"
	infracookie "authgate/internal/infrastructure/cookie"
	infratoken "authgate/internal/infrastructure/token"
	"authgate/internal/usecase"

	"authgate/config"
	appmiddleware "authgate/middleware"
	"authgate/utils/logger"
	"authgate/utils/otel"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Local development convenience; absent .env is not an error
	_ = godotenv.Load()

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
		"provider", cfg.Provider,
		"app_url", cfg.AppURL,
		"port", cfg.Port,
		"refresh_enabled", cfg.UseRefreshToken)

	// Provider gateway (performs OIDC discovery on startup)
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize OIDC provider", "error", err)
		os.Exit(1)
	}

	// Infrastructure
	cookies := infracookie.NewStore(cfg.AccessCookieName, cfg.RefreshCookieName)
	states := infratoken.NewHMACStateCodec(cfg.StateSecret)

	var issuer domain.TokenIssuer
	if cfg.UpstreamTokenEnabled() {
		issuer = infratoken.NewJWTIssuer(infratoken.JWTConfig{
			Secret:   cfg.UpstreamTokenSecret,
			Issuer:   cfg.UpstreamTokenIssuer,
			Audience: cfg.UpstreamTokenAudience,
			TTL:      cfg.UpstreamTokenTTL,
		})
	}

	// Usecases
	resolver := usecase.NewResolver(provider, cfg.LoginPath, slog.Default())

	// Handlers
	loginHandler := adapterhandler.NewLoginHandler(provider, cookies, states, slog.Default())
	callbackHandler := adapterhandler.NewCallbackHandler(provider, cookies, states, slog.Default())
	logoutHandler := adapterhandler.NewLogoutHandler(cookies)
	healthHandler := adapterhandler.NewHealthHandler()

	gate := appmiddleware.NewGate(appmiddleware.GateConfig{
		Resolver:     resolver,
		Cookies:      cookies,
		Callback:     callbackHandler.Handle,
		CallbackPath: cfg.CallbackPath,
		SkipPaths:    []string{cfg.LoginPath, cfg.LogoutPath, "/health"},
		Issuer:       issuer,
		Logger:       slog.Default(),
	})

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

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
	loginRL := appmiddleware.NewRateLimiter(10.0/60.0, 3)     // 10 req/min
	callbackRL := appmiddleware.NewRateLimiter(20.0/60.0, 5)  // 20 req/min

	// Authentication flow routes
	e.GET(cfg.LoginPath, loginHandler.Handle, loginRL.Middleware())
	e.GET(cfg.CallbackPath, callbackHandler.Handle, callbackRL.Middleware())
	e.GET(cfg.LogoutPath, logoutHandler.Handle)
	e.GET("/health", healthHandler.Handle)

	// Sample protected routes demonstrating both gate front ends
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, appmiddleware.ClaimsFrom(c))
	}, gate.Require(domain.Policy{RedirectOnFail: false}))

	app := e.Group("/app", gate.Middleware(domain.Policy{RedirectOnFail: true}))
	app.GET("/home", func(c echo.Context) error {
		claims := appmiddleware.ClaimsFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"email": claims.Email(), "subject": claims.Subject()})
	})

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	slog.InfoContext(ctx, "starting authgate server", "address", address)

	g, gCtx := errgroup.WithContext(ctx)

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

// newProvider builds the provider gateway for the configured provider family.
func newProvider(ctx context.Context, cfg *config.Config) (domain.ProviderClient, error) {
	opts := gateway.Options{
		ClientID:        cfg.ClientID,
		ClientSecret:    cfg.ClientSecret,
		AppURL:          cfg.AppURL,
		CallbackPath:    cfg.CallbackPath,
		UseRefreshToken: cfg.UseRefreshToken,
		TenantID:        cfg.TenantID,
		BaseURL:         cfg.BaseURL,
		Realm:           cfg.Realm,
	}

	switch cfg.Provider {
	case config.ProviderGoogle:
		return gateway.NewGoogle(ctx, opts)
	case config.ProviderEntraID:
		return gateway.NewEntraID(ctx, opts)
	case config.ProviderKeycloak:
		return gateway.NewKeycloak(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// runHealthcheck performs a health check against the local server.
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
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
