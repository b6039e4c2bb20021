package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/severin-ye/NutriFlow---AI/internal/config"
	"github.com/severin-ye/NutriFlow---AI/internal/llm"
	"github.com/severin-ye/NutriFlow---AI/internal/mealtype"
	"github.com/severin-ye/NutriFlow---AI/internal/pipeline"
	"github.com/severin-ye/NutriFlow---AI/internal/server"
	"github.com/severin-ye/NutriFlow---AI/internal/storage"
)

var (
	dbPath   = flag.String("db-path", "", "Database path (overrides NUTRIFLOW_DB_PATH)")
	userID   = flag.String("user", "", "User id (overrides NUTRIFLOW_USER_ID)")
	logLevel = flag.String("log-level", "", "Log level (overrides NUTRIFLOW_LOG_LEVEL)")
	version  = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("nutriflow version 1.0.0")
		os.Exit(0)
	}

	cfg := config.Load()
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *userID != "" {
		cfg.UserID = *userID
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := config.NewLogger(cfg.LogLevel)

	client := llm.NewClient(cfg.BaseURL, cfg.APIKey, cfg.TextModel, cfg.VisionModel, log)
	store := storage.NewStore(cfg.DBPath, cfg.UserID, log)
	classifier := mealtype.NewClassifier(client, log)
	stages := pipeline.New(client, client, log)
	runner := pipeline.NewRunner(client, stages, classifier, client, client, store, cfg.RecentDays, log)

	srv := server.NewNutriFlowServer(runner, store, classifier, cfg.RecentDays, log, os.Stdin, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("db_path", cfg.DBPath).Info("nutriflow server started")
		if err := srv.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-sigCh:
		log.Info("received shutdown signal")
	case err, ok := <-errCh:
		if ok && err != nil {
			log.WithError(err).Error("server error")
		}
	}
	cancel()
}
