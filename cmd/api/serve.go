package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/tutorhub-identity/internal/auth"
	"github.com/redmonkez12/tutorhub-identity/internal/email"
	httpServer "github.com/redmonkez12/tutorhub-identity/internal/http"
	"github.com/redmonkez12/tutorhub-identity/internal/httputil"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// Background workers stop with ctx
	sender := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromAddress,
		cfg.Email.FrontendURL,
		logger,
	)
	worker := email.NewWorker(a.transport.Subscriber, cfg.Email.Topic, sender, logger)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start email worker: %w", err)
	}

	go a.tokens.RunJanitor(ctx, cfg.Auth.TokenCleanupInterval)

	validator := httputil.NewValidator()
	router := httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:       auth.NewHandler(a.service, a.tokens, validator),
		Admin:      auth.NewAdminHandler(a.workflow, validator),
		Middleware: auth.NewMiddleware(a.tokenSvc, a.users),
	}, logger)

	server := httpServer.NewServer(cfg.Server, router, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	select {
	case <-worker.Done():
	case <-shutdownCtx.Done():
		logger.Warn("email worker did not stop before shutdown timeout")
	}

	return nil
}
