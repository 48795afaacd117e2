// Package server bootstraps the central registry: storage, services,
// HTTP routes and the background jobs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homefleet/app/clients"
	"homefleet/app/config"
	"homefleet/app/handlers"
	"homefleet/app/jobs"
	"homefleet/app/services"
	"homefleet/storage/postgres"
)

// Server is the assembled central registry.
type Server struct {
	cfg     *config.CentralConfig
	storage clients.StorageAdapter
	router  *gin.Engine
	log     zerolog.Logger

	sweep     *jobs.Runner
	retention *jobs.Runner
}

// Bootstrap wires storage, services, handlers and jobs together. It runs
// migrations as part of opening the store.
func Bootstrap(cfg *config.CentralConfig, log zerolog.Logger) (*Server, error) {
	store, err := postgres.NewStore(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var tokenService *services.TokenService
	if cfg.JWTSecret != "" {
		tokenService = services.NewTokenService(cfg.JWTSecret, cfg.JWTExpirationSec)
	} else {
		log.Warn().Msg("jwt_secret not set, running without agent auth")
	}

	nodeService := services.NewNodeService(store, cfg.StaleThresholdMin, log)

	nodeHandler := handlers.NewNodeHandler(nodeService, tokenService)
	healthHandler := handlers.NewHealthHandler()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(router, nodeHandler, healthHandler)

	srv := &Server{
		cfg:     cfg,
		storage: store,
		router:  router,
		log:     log,
		sweep: jobs.NewRunner(
			jobs.NewLivenessSweep(store, cfg.HeartbeatTimeoutMin, log),
			time.Duration(cfg.SweepIntervalSec)*time.Second, log),
		retention: jobs.NewRunner(
			jobs.NewRetention(store, cfg.MetricsRetentionDays, cfg.EventsRetentionDays, log),
			time.Duration(cfg.RetentionIntervalHours)*time.Hour, log),
	}
	return srv, nil
}

// setupRoutes configures HTTP routes
func setupRoutes(router *gin.Engine, nodeHandler *handlers.NodeHandler, healthHandler *handlers.HealthHandler) {
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		// Agent endpoints
		v1.POST("/nodes/register/", nodeHandler.Register)
		v1.POST("/nodes/:id/heartbeat/", nodeHandler.Heartbeat)
		v1.POST("/nodes/:id/metrics/", nodeHandler.PushMetrics)

		// Fleet view endpoints (fleetctl and dashboards)
		v1.GET("/nodes/", nodeHandler.ListNodes)
		v1.GET("/nodes/:id/", nodeHandler.GetNode)
	}
}

// Run serves HTTP and the background jobs until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.storage.Close()

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.sweep.Start(jobCtx) }()
	go func() { defer wg.Done(); s.retention.Start(jobCtx) }()

	httpSrv := &http.Server{
		Addr:    ":" + s.cfg.ListenPort,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", httpSrv.Addr).Msg("central registry listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		cancelJobs()
		wg.Wait()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("http shutdown was not clean")
	}

	wg.Wait()
	return nil
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
