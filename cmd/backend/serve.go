package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	repositoryimpl "github.com/foxseedlab/tunesmith/external/repository"
	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/foxseedlab/tunesmith/internal/workflow"
	"github.com/gofrs/flock"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const (
	connectTimeout = 20 * time.Second
	lockFileName   = ".tunesmith.lock"
)

var errAlreadyRunning = errors.New("another instance is already using this work directory")

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(parent context.Context, app *commandContext) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg := app.cfg

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.WorkDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			slog.Warn("failed to release lock", "error", err)
		}
	}()

	slog.Info("startup: building dependency graph", "transport", cfg.Transport, "session_store", cfg.SessionStore)
	backend, err := do.Invoke[repositoryimpl.Backend](app.injector)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	store, err := do.Invoke[session.Store](app.injector)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			_ = closer.Close()
		}()
	}

	client, err := do.Invoke[chat.Client](app.injector)
	if err != nil {
		return fmt.Errorf("failed to resolve chat client: %w", err)
	}
	dispatcher, err := do.Invoke[*workflow.Dispatcher](app.injector)
	if err != nil {
		return fmt.Errorf("failed to resolve dispatcher: %w", err)
	}

	client.RegisterEventHandler(dispatcher.Handle)
	connectCtx, cancel := context.WithTimeout(parent, connectTimeout)
	defer cancel()
	slog.Info("startup: connecting transport")
	if err := client.Connect(connectCtx); err != nil {
		return fmt.Errorf("%s connect failed: %w", cfg.Transport, err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slog.Error("transport close failed", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("startup: entering run loop", "work_dir", cfg.WorkDir)
	if err := client.Run(runCtx); err != nil {
		return fmt.Errorf("%s run failed: %w", cfg.Transport, err)
	}
	slog.Info("shutting down")
	return nil
}
