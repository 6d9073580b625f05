package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	audioimpl "github.com/foxseedlab/tunesmith/external/audio"
	configloader "github.com/foxseedlab/tunesmith/external/config"
	"github.com/foxseedlab/tunesmith/external/discord"
	"github.com/foxseedlab/tunesmith/external/download"
	i18nimpl "github.com/foxseedlab/tunesmith/external/i18n"
	repositoryimpl "github.com/foxseedlab/tunesmith/external/repository"
	"github.com/foxseedlab/tunesmith/external/sessionstore"
	"github.com/foxseedlab/tunesmith/external/tagcodec"
	"github.com/foxseedlab/tunesmith/external/telegram"
	"github.com/foxseedlab/tunesmith/external/transcoder"
	"github.com/foxseedlab/tunesmith/internal/chat"
	"github.com/foxseedlab/tunesmith/internal/config"
	"github.com/foxseedlab/tunesmith/internal/session"
	"github.com/foxseedlab/tunesmith/internal/workflow"
	"github.com/mattn/go-isatty"
	"github.com/samber/do/v2"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := configloader.Load()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// initLogger writes JSON logs, or text when w is an interactive terminal.
func initLogger(cfg *config.Config, w io.Writer) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	sessionstore.RegisterDI(injector)
	session.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcoder.RegisterDI(injector)
	tagcodec.RegisterDI(injector)
	i18nimpl.RegisterDI(injector)
	download.RegisterDI(injector)
	telegram.RegisterDI(injector)
	discord.RegisterDI(injector)
	do.Provide(injector, func(i do.Injector) (chat.Client, error) {
		switch cfg.Transport {
		case config.TransportDiscord:
			return do.MustInvoke[*discord.Client](i), nil
		case config.TransportTelegram:
			return do.MustInvoke[*telegram.Client](i), nil
		default:
			return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
		}
	})
	workflow.RegisterDI(injector)

	return injector
}
