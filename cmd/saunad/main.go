package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HenryAllen04/Sigma-Saunas/config"
	"github.com/HenryAllen04/Sigma-Saunas/internal/api"
	"github.com/HenryAllen04/Sigma-Saunas/internal/harvia"
	"github.com/HenryAllen04/Sigma-Saunas/internal/logging"
	"github.com/HenryAllen04/Sigma-Saunas/internal/monitor"
	"github.com/HenryAllen04/Sigma-Saunas/internal/notify"
	"github.com/HenryAllen04/Sigma-Saunas/internal/relay"
	"github.com/HenryAllen04/Sigma-Saunas/internal/storage/sqlite"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	// Initialize database
	logger.Info("Initializing SQLite database", "path", cfg.Database.Path)
	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Initialize the Harvia cloud client. Authentication is lazy; the first
	// request discovers endpoints, signs in and resolves the device id.
	logger.Info("Initializing Harvia client", "base_url", cfg.Harvia.BaseURL)
	client, err := harvia.NewClient(harvia.Config{
		Username: cfg.Harvia.Username,
		Password: cfg.Harvia.Password,
		BaseURL:  cfg.Harvia.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create Harvia client: %w", err)
	}

	// Live stream relay shares the client with the REST handlers.
	streamRelay := relay.New(client, cfg.Stream.PollInterval(), logger)

	// Start the presence monitor when Telegram alerting is configured.
	var mon *monitor.Monitor
	if cfg.Telegram.Token != "" {
		logger.Info("Starting presence monitor", "chat_id", cfg.Telegram.ChatID)
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		mon = monitor.New(client, notifier, cfg.Stream.PollInterval(), logger)
		go mon.Start()
	}

	// Initialize REST API
	router := api.NewRouter(api.RouterConfig{
		Client:  client,
		Storage: db,
		Relay:   streamRelay,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		// Long-lived stream connections need an unbounded write window.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		if mon != nil {
			mon.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}
