package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/bot"
	"github.com/SX2s/SX2-Enforcer/internal/config"
	"github.com/SX2s/SX2-Enforcer/internal/modules/audit"
	"github.com/SX2s/SX2-Enforcer/internal/modules/grants"
	"github.com/SX2s/SX2-Enforcer/internal/modules/reactionroles"
	"github.com/SX2s/SX2-Enforcer/internal/modules/warnings"
	"github.com/SX2s/SX2-Enforcer/internal/setup"
	"github.com/SX2s/SX2-Enforcer/internal/stats"
	"github.com/SX2s/SX2-Enforcer/internal/storage"
	"github.com/SX2s/SX2-Enforcer/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	docs, err := store.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("document store init failed", zap.Error(err))
	}

	db, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	warningLedger, err := warnings.New(docs)
	if err != nil {
		logger.Fatal("warning ledger init failed", zap.Error(err))
	}
	reactionTable, err := reactionroles.New(docs)
	if err != nil {
		logger.Fatal("reaction role table init failed", zap.Error(err))
	}
	sessionManager, err := setup.NewManager(docs)
	if err != nil {
		logger.Fatal("setup manager init failed", zap.Error(err))
	}

	auditLogger := audit.NewLogger(db, logger)
	grantScheduler := grants.New(db, logger)
	statsService := stats.New()

	botSvc, err := bot.New(cfg, logger, docs, db,
		warningLedger, reactionTable, grantScheduler, sessionManager, auditLogger, statsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	botSvc.Close(ctx)
}
