package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/smartgrocery/internal/config"
	"github.com/dukerupert/smartgrocery/internal/database"
	"github.com/dukerupert/smartgrocery/internal/email"
	"github.com/dukerupert/smartgrocery/internal/logging"
	"github.com/dukerupert/smartgrocery/internal/openfoodfacts"
	"github.com/dukerupert/smartgrocery/internal/scanner"
	"github.com/dukerupert/smartgrocery/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("SMARTGROCERY_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	products := openfoodfacts.NewClient(
		openfoodfacts.WithBaseURL(cfg.OpenFoodFacts.BaseURL),
		openfoodfacts.WithPageSize(cfg.OpenFoodFacts.PageSize),
		openfoodfacts.WithUserAgent(cfg.OpenFoodFacts.UserAgent),
		openfoodfacts.WithTimeout(cfg.OpenFoodFacts.Timeout),
	)

	mailer := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, email.WithAPIURL(cfg.Email.APIURL))
	if !mailer.Configured() {
		logger.Warn("postmark token not set, verification emails will not be delivered")
	}

	srv := server.New(db, cfg, server.Deps{
		Products: products,
		Mailer:   mailer,
		Decoder:  scanner.NewZXingDecoder(),
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := srv.AuthService().Cleanup(cleanupCtx); err != nil {
					logger.Error("cleanup expired auth records", "error", err)
				}
				if n := srv.RateLimiter().Cleanup(); n > 0 {
					logger.Debug("rate limit windows expired", "count", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("smartgrocery starting", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
