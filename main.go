package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartmeter-synth/internal/audit"
	"smartmeter-synth/internal/auth"
	"smartmeter-synth/internal/config"
	generationapp "smartmeter-synth/internal/generation/application"
	"smartmeter-synth/internal/generation/application/eventbus"
	generation "smartmeter-synth/internal/generation/domain"
	"smartmeter-synth/internal/generation/interfaces"
	generationhttp "smartmeter-synth/internal/generation/interfaces/http"
	"smartmeter-synth/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	if cfg.Server.JWTSecret == "" {
		logger.Fatal("AUTH_JWT_SECRET is required")
	}

	metrics.Init()

	var auditLogger audit.Logger = audit.NewLogLogger(logger)
	if cfg.Server.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.Server.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		auditLogger = audit.NewRepository(db)
	} else {
		logger.Printf("DATABASE_URL not set; audit entries go to the log")
	}

	defaults, err := cfg.Generation.Configuration()
	if err != nil {
		logger.Fatalf("generation defaults error: %v", err)
	}

	bus := eventbus.NewInMemoryBus()
	interfaces.NewLoggingSubscriber(logger).Register(bus)

	generator := generation.NewGenerator(generation.WithMpanOptions(generation.WithMaxAttempts(cfg.Limits.MaxMpanAttempts)))
	service, err := generationapp.NewService(generator, bus, defaults, generationapp.WithLimits(generationapp.Limits{
		MaxMeters:       cfg.Limits.MaxMeters,
		MaxDays:         cfg.Limits.MaxDays,
		MaxPeriodValues: cfg.Limits.MaxPeriodValues,
	}))
	if err != nil {
		logger.Fatalf("generation service error: %v", err)
	}
	handler, err := generationhttp.NewHandler(service, auditLogger)
	if err != nil {
		logger.Fatalf("generation handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.Server.JWTSecret), policy)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Printf("http listening on %s", cfg.Server.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
	logger.Printf("http server stopped")
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
