package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/config"
	"github.com/dukerupert/smartgrocery/internal/database"
	"github.com/dukerupert/smartgrocery/internal/email"
	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/logging"
	"github.com/dukerupert/smartgrocery/internal/openfoodfacts"
	"github.com/dukerupert/smartgrocery/internal/scanner"
	"github.com/dukerupert/smartgrocery/internal/store"
	"github.com/dukerupert/smartgrocery/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "grocer:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("SMARTGROCERY_CONFIG"), "path to a YAML config file")
	logPath := flag.String("log", "", "write logs to this file instead of discarding them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	products := openfoodfacts.NewClient(
		openfoodfacts.WithBaseURL(cfg.OpenFoodFacts.BaseURL),
		openfoodfacts.WithPageSize(cfg.OpenFoodFacts.PageSize),
		openfoodfacts.WithUserAgent(cfg.OpenFoodFacts.UserAgent),
		openfoodfacts.WithTimeout(cfg.OpenFoodFacts.Timeout),
	)
	mailer := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From, email.WithAPIURL(cfg.Email.APIURL))

	groceries := grocery.NewService(store.NewGroceryStore(db), products, logger.With("component", "grocery"))
	authSvc := auth.NewService(
		store.NewUserStore(db),
		store.NewSessionStore(db, cfg.Auth.SessionTTL),
		store.NewCodeStore(db),
		mailer,
		auth.NewTokens(cfg.Auth.JWTSecret),
		logger.With("component", "auth"),
		auth.WithCodeLogging(cfg.Dev),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := authSvc.Cleanup(ctx); err != nil {
		logger.Warn("cleanup expired auth records", "error", err)
	}

	m := tui.New(ctx, authSvc, groceries, scanner.NewZXingDecoder(), logger.With("component", "tui"))
	return tui.Run(ctx, m)
}
