package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jobtrace/jobtrace-gateway/internal/api/rest"
	"github.com/jobtrace/jobtrace-gateway/internal/command"
	"github.com/jobtrace/jobtrace-gateway/internal/config"
	"github.com/jobtrace/jobtrace-gateway/internal/hub"
	"github.com/jobtrace/jobtrace-gateway/internal/pkg/logger"
	"github.com/jobtrace/jobtrace-gateway/internal/reconciler"
	"github.com/jobtrace/jobtrace-gateway/internal/repository"
	"github.com/jobtrace/jobtrace-gateway/internal/service"
	"github.com/jobtrace/jobtrace-gateway/internal/tracing"
	"github.com/jobtrace/jobtrace-gateway/internal/upstream"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slog := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.Info("jobtrace-gateway starting", "port", cfg.Port, "db", cfg.DatabasePath, "upstream", cfg.UpstreamURL)

	tracingEndpoint := ""
	if cfg.TracingEnabled {
		tracingEndpoint = cfg.TracingEndpoint
	}
	stopTracing, err := tracing.Init("jobtrace-gateway", tracingEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer stopTracing()

	// A half-initialized store is worse than no process: fail fast.
	repo, err := repository.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize audit store: %v", err)
	}
	defer repo.Close()
	if err := repo.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("audit store ready")

	broadcastHub := hub.New(slog)

	jobs := upstream.NewClient(
		cfg.UpstreamURL,
		time.Duration(cfg.UpstreamTimeoutSec)*time.Second,
		cfg.UpstreamRateLimitPerSec,
		cfg.UpstreamRateLimitBurst,
	)

	poller := reconciler.New(
		jobs,
		repo,
		broadcastHub,
		cfg.ReconcileService,
		time.Duration(cfg.ReconcileIntervalSec)*time.Second,
		time.Duration(cfg.UpstreamTimeoutSec)*time.Second,
		slog,
	)
	if cfg.ReconcileIntervalSec > 0 {
		if err := poller.Start(ctx); err != nil {
			log.Fatalf("Failed to start reconciliation poller: %v", err)
		}
	} else {
		slog.Info("reconciliation poller disabled")
	}

	runner := command.NewRunner(repo, broadcastHub, command.SystemDelegate{}, nil, slog)
	auditService := service.NewAuditService(repo)

	router := mux.NewRouter()
	handler := rest.NewHandler(auditService, runner, broadcastHub, jobs, cfg.ReconcileService,
		time.Duration(cfg.DashboardCacheTTLSec)*time.Second)
	rest.SetupRoutes(router, handler)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	var httpHandler http.Handler = c.Handler(router)
	if cfg.TracingEnabled {
		httpHandler = otelhttp.NewHandler(httpHandler, "jobtrace-gateway")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	// Stop producing first, then drain HTTP, then release the store so any
	// in-flight write completes before the handle goes away.
	poller.Stop()
	broadcastHub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced to shutdown", "error", err)
	}

	if err := repo.Close(); err != nil {
		slog.Warn("audit store close failed", "error", err)
	}

	slog.Info("server exited gracefully")
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the logging wrapper.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
