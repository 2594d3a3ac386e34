package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/Cheese-LocalChess/internal/chessbuilder"
	"github.com/park285/Cheese-LocalChess/internal/config"
	"github.com/park285/Cheese-LocalChess/internal/domain"
	"github.com/park285/Cheese-LocalChess/internal/obslog"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chess-board",
		Short: "Local hot-seat chess board with clocks",
		Long: `chess-board hosts a two-player chess board on this machine.
Open the HTTP address in a browser and take turns tapping squares.`,
		SilenceUsage: true,
		RunE:         run,
	}
	f := cmd.Flags()
	f.Int("mode", int(domain.Standard), "game mode: 1 standard, 2 random army")
	f.Int("minutes", 5, "base time minutes per side (0 with --seconds 0 disables clocks)")
	f.Int("seconds", 0, "base time seconds per side")
	f.Int("increment", 0, "increment seconds per move")
	f.String("http", "", "board page listen address (overrides BOARD_HTTP_ADDR)")
	f.String("ws", "", "websocket feed listen address (overrides BOARD_WS_ADDR)")
	return cmd
}

// applyFlags layers explicitly set flags over the env config.
func applyFlags(cmd *cobra.Command, cfg *config.AppConfig) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		n, _ := f.GetInt("mode")
		mode, err := domain.ParseGameMode(n)
		if err != nil {
			return err
		}
		cfg.GameMode = mode
	}
	if f.Changed("minutes") {
		cfg.BaseMinutes, _ = f.GetInt("minutes")
	}
	if f.Changed("seconds") {
		cfg.BaseSeconds, _ = f.GetInt("seconds")
	}
	if f.Changed("increment") {
		cfg.IncrementSecs, _ = f.GetInt("increment")
	}
	if v, _ := f.GetString("http"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, _ := f.GetString("ws"); v != "" {
		cfg.WSAddr = v
	}
	return cfg.Validate()
}

func run(cmd *cobra.Command, _ []string) error {
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := chessbuilder.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("chess init: %w", err)
	}
	defer func() { _ = deps.Close() }()

	serverErrors := make(chan error, 2)
	go func() { serverErrors <- deps.Server.ListenAndServe(cfg.HTTPAddr) }()
	if cfg.WSAddr != "" {
		go func() { serverErrors <- deps.Feed.ListenAndServe(cfg.WSAddr) }()
	}
	logger.Info("chess_board_ready",
		zap.String("http", "http://"+cfg.HTTPAddr),
		zap.String("feed", chessbuilder.FeedURL(cfg.WSAddr)),
		zap.String("mode", cfg.GameMode.String()),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var runErr error
	select {
	case err := <-serverErrors:
		if err != nil {
			runErr = fmt.Errorf("server: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	}

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := deps.Server.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if err := deps.Feed.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("feed_shutdown_error", zap.Error(err))
	}
	return runErr
}
