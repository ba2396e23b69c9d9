package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantry/internal/api"
	"pantry/internal/config"
	"pantry/internal/cookbook"
	"pantry/internal/logging"
	"pantry/internal/monitoring"
	"pantry/internal/seed"
	"pantry/internal/storage"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	issueToken  = flag.String("issue-token", "", "Print a signed API token for the given subject and exit")
	tokenTTL    = flag.Duration("token-ttl", 24*time.Hour, "Lifetime of tokens printed by -issue-token")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *metricsPort != 0 {
		cfg.MetricsPort = *metricsPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *issueToken != "" {
		if !cfg.AuthEnabled() {
			log.Fatalf("auth.secret (or %s) must be set to issue tokens", config.SecretEnv)
		}
		token, err := api.IssueToken([]byte(cfg.Auth.Secret), *issueToken, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	monitor := monitoring.NewMonitor()
	observers := []storage.Observer{monitor}

	var hub *api.Hub
	if cfg.Events.Enabled {
		hub = api.NewHub(logger)
		observers = append(observers, hub)
	}

	ledger := storage.New(storage.WithLogger(logger), storage.WithObserver(observers...))
	book := cookbook.NewRecipeBook()

	if err := monitor.Watch(ledger, book); err != nil {
		return fmt.Errorf("failed to register gauges: %w", err)
	}

	loader := &seed.Loader{Ledger: ledger, Book: book, Logger: logger}
	if _, err := loader.Apply(cfg.Seed); err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	pantry := api.NewPantryAPI(ledger, book, api.Options{
		Logger:   logger,
		Secret:   cfg.Auth.Secret,
		Events:   hub,
		Failures: monitor,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: pantry.Router,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg, monitor)
		go func() {
			logger.Info("starting metrics server", zap.Int("port", cfg.MetricsPort), zap.String("path", cfg.Metrics.Path))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.Int("port", cfg.Port), zap.Bool("auth", cfg.AuthEnabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down servers")
	if hub != nil {
		hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	return nil
}

func newMetricsServer(cfg *config.Config, monitor *monitoring.Monitor) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET(cfg.Metrics.Path, gin.WrapH(monitor.Handler()))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsRouter,
	}
}
