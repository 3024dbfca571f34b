package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairizuan-noorazman/perplexiplay/agent"
	"github.com/hairizuan-noorazman/perplexiplay/apiclient"
	"github.com/hairizuan-noorazman/perplexiplay/auth"
	"github.com/hairizuan-noorazman/perplexiplay/cmd/web/handlers"
	"github.com/hairizuan-noorazman/perplexiplay/database"
	"github.com/hairizuan-noorazman/perplexiplay/experiment"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
	"github.com/hairizuan-noorazman/perplexiplay/session"
	"github.com/spf13/cobra"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg LogConfig) logger.Logger {
	return logger.NewLogrusLoggerWithOptions(logger.Options{
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
}

// newSessionStore returns the configured session store and a close func.
func newSessionStore(ctx context.Context, cfg *Config, log logger.Logger) (session.Store, func(), error) {
	if cfg.Session.Store != "database" {
		return session.NewMemoryStore(), func() {}, nil
	}

	db, err := database.Connect(cfg.Database.connection())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	log.Info(ctx, "database connected", map[string]interface{}{
		"driver":   cfg.Database.Driver,
		"host":     cfg.Database.Host,
		"database": cfg.Database.Database,
	})

	return session.NewGormStore(db, log), func() { sqlDB.Close() }, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := newLogger(cfg.Log)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	location, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		return fmt.Errorf("invalid ui.timezone %q: %w", cfg.UI.Timezone, err)
	}

	// Initialize session manager
	store, closeStore, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sessionManager := session.NewManager(store, cfg.Session.Duration, log)
	sessionManager.StartCleanup(cfg.Session.CleanupInterval)
	defer sessionManager.StopCleanup()

	log.Info(ctx, "session manager initialized", map[string]interface{}{
		"store":    cfg.Session.Store,
		"duration": cfg.Session.Duration.String(),
	})

	// Backend client and stores
	client := apiclient.New(apiclient.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		RetryCount: cfg.Backend.RetryCount,
		Debug:      cfg.Backend.Debug,
	}, log)

	renderer, err := handlers.NewRenderer(handlers.RenderConfig{
		Title:      cfg.UI.Title,
		DateFormat: cfg.UI.DateFormat,
		Location:   location,
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	router := handlers.NewRouter(handlers.Deps{
		Auth:        auth.NewService(client, sessionManager, log),
		Sessions:    sessionManager,
		Agents:      agent.NewAPIStore(client, log),
		Experiments: experiment.NewAPIStore(client, log),
		Renderer:    renderer,
		Cookies: handlers.NewCookies(handlers.CookieConfig{
			SessionName: cfg.Session.CookieName,
			FlashName:   cfg.Session.FlashCookieName,
			HashKey:     []byte(cfg.Session.HashKey),
			BlockKey:    []byte(cfg.Session.BlockKey),
			Secure:      cfg.Session.Secure,
		}),
		Logger:        log,
		Version:       Version,
		CSRFKey:       []byte(cfg.Session.CSRFKey),
		RefreshWindow: cfg.Session.RefreshWindow,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
			"backend": cfg.Backend.BaseURL,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}
