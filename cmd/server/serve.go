package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/insta-autoreply/internal/di"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/database"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/logging"
	httpServer "github.com/reshetovitsme/insta-autoreply/internal/transport/http"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server and the operator bot",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Setup dependency injection
	injector, err := di.Setup()
	if err != nil {
		slog.Error("Failed to setup dependency injection", "error", err)
		return err
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}

	_, closer := logging.Setup(cfg)
	defer closer.Close()

	if migrateOnStart {
		if err := migrate(injector); err != nil {
			slog.Error("Failed to migrate schema", "error", err)
			return err
		}
	}

	// Get services from DI container
	server, err := do.Invoke[*httpServer.Server](injector)
	if err != nil {
		slog.Error("Failed to build HTTP server", "error", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Application started", "port", cfg.HTTPPort)
		return server.Start()
	})

	if cfg.TelegramBotToken != "" {
		b, err := do.Invoke[*bot.Bot](injector)
		if err != nil {
			slog.Error("Failed to start telegram bot", "error", err)
			return err
		}
		g.Go(func() error {
			slog.Info("Operator bot started", "alert_chat_id", cfg.TelegramAlertChatID)
			b.Start(gctx)
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return err
	}
	return nil
}

func migrate(injector do.Injector) error {
	db, err := do.Invoke[*gorm.DB](injector)
	if err != nil {
		return oops.With("context", "failed to open database").Wrap(err)
	}
	if err := database.Migrate(db, di.Models()...); err != nil {
		return err
	}
	slog.Info("Schema migrated", "tables", len(di.Models()))
	return nil
}
