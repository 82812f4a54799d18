package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	evalapi "github.com/salud-digital/anthro/internal/evaluation/api"

	"github.com/salud-digital/anthro/internal/evaluation"
	"github.com/salud-digital/anthro/internal/growth"
	"github.com/salud-digital/anthro/internal/shared/auth"
	"github.com/salud-digital/anthro/internal/shared/config"
	"github.com/salud-digital/anthro/internal/shared/metrics"
	secmiddleware "github.com/salud-digital/anthro/internal/shared/middleware"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	Store  *growth.Store
	Logger *slog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Reference tables: embedded by default, external directory override.
	var store *growth.Store
	if cfg.Reference.DataDir != "" {
		store, err = growth.LoadDir(cfg.Reference.DataDir)
	} else {
		store, err = growth.LoadEmbedded()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load reference tables: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg, Store: store, Logger: logger}

	svc := evaluation.NewService(store, logger)
	handler := evalapi.NewHandler(svc, store)

	rateLimiter := secmiddleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	corsCfg := secmiddleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORS.AllowedOrigins

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.InputSanitizer)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(corsCfg))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		if cfg.Auth.Enabled {
			r.Use(auth.Middleware(cfg.Auth))
		}

		r.Mount("/evaluations", handler.Routes())
		r.Mount("/reference", handler.ReferenceRoutes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		close(done)
	}()

	logger.Info("anthropometric evaluation service started",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"auth_enabled", cfg.Auth.Enabled,
		"reference_data", referenceSource(cfg),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	logger.Info("server stopped")
}

func referenceSource(cfg *config.Config) string {
	if cfg.Reference.DataDir != "" {
		return cfg.Reference.DataDir
	}
	return "embedded"
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Pediatric Anthropometric Evaluation Service",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		// Every (indicator, sex) table must be loaded.
		tablesReady := true
		for _, ind := range growth.Indicators {
			for _, sex := range growth.Sexes {
				if _, ok := app.Store.Table(ind, sex); !ok {
					tablesReady = false
				}
			}
		}
		if tablesReady {
			checks["reference_tables"] = "ready"
		} else {
			checks["reference_tables"] = "not ready: tables missing"
		}

		status := http.StatusOK
		overall := "ready"
		if !tablesReady {
			status = http.StatusServiceUnavailable
			overall = "not ready"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}
