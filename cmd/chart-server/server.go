package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/odontogram/internal/config"
	"github.com/clinicdesk/odontogram/internal/domain/odontogram"
	"github.com/clinicdesk/odontogram/internal/platform/auth"
	"github.com/clinicdesk/odontogram/internal/platform/db"
	"github.com/clinicdesk/odontogram/internal/platform/middleware"
	"github.com/clinicdesk/odontogram/internal/platform/telemetry"
)

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("storage", cfg.StorageDriver).Msg("failed to open chart store")
		return err
	}
	defer st.close()
	logger.Info().Str("storage", st.driver).Bool("notes_encrypted", st.sealed).Msg("chart store ready")

	tp := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{
		ServiceName:       "chart-server",
		ServiceVersion:    version,
		Environment:       cfg.Env,
		MetricsEnabled:    cfg.MetricsEnabled,
		ProcessCollectors: cfg.MetricsEnabled,
	})

	e := newRouter(cfg, logger, st, tp)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newRouter assembles the echo instance: global middleware, health and
// metrics endpoints, and the authenticated /api/v1 chart routes.
func newRouter(cfg *config.Config, logger zerolog.Logger, st *chartStore, tp *telemetry.TelemetryProvider) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(tp.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
		HSTS:            cfg.TLSEnabled || cfg.IsProduction(),
		CatalogPrefixes: []string{"/api/v1/odontogram/"},
		CatalogMaxAge:   time.Duration(cfg.CatalogCacheSeconds) * time.Second,
		Skipper:         middleware.SkipPaths("/health", "/metrics"),
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Tenant-ID"},
	}))

	e.GET("/health", db.HealthHandler(st.driver, st.ping, st.pool))
	if cfg.MetricsEnabled {
		e.GET("/metrics", tp.PrometheusHandler())
	}

	var authMW echo.MiddlewareFunc
	if cfg.ResolvedAuthMode() == config.AuthModeDevelopment {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		})
	}

	tenantMW := db.StaticTenant(cfg.DefaultTenant)
	if st.pool != nil {
		tenantMW = db.TenantMiddleware(st.pool, cfg.DefaultTenant)
	}

	apiV1 := e.Group("/api/v1",
		authMW,
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
		tenantMW,
		middleware.Audit(logger),
	)

	svc := odontogram.NewService(st.repo, logger)
	svc.SetMetrics(tp)
	odontogram.NewHandler(svc).RegisterRoutes(apiV1)

	return e
}
