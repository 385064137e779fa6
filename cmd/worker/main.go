package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/tagvault/tagvault/internal/tasks"
	"github.com/tagvault/tagvault/pkg/config"
	"github.com/tagvault/tagvault/pkg/mailer"
	"github.com/tagvault/tagvault/pkg/queue"
	"github.com/tagvault/tagvault/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting tagvault worker")

	var m mailer.Mailer
	if cfg.Mail.SendGridKey != "" {
		m = mailer.NewSendGrid(cfg.Mail.SendGridKey, cfg.Mail.FromName, cfg.Mail.FromAddress, logger)
	} else {
		logger.Warn("MAIL_SENDGRID_KEY not set, codes will be logged instead of mailed")
		m = mailer.NewConsole(logger)
	}

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(m, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()
	logger.Info("worker stopped")
}
