package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cliffyan/go-biz-search/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP + MCP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Infof("🔍 Starting go-biz-search MCP Server...")
	cfg.Print(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := server.Deps{
		Searcher: a.orchestrator,
		Engines:  a.orchestrator.Engines(),
		Logger:   logger,
	}
	if a.recorder != nil {
		deps.Summary = a.recorder
	}
	if a.prometheus != nil {
		deps.Metrics = a.prometheus.Handler()
	}

	srv := server.New(cfg, deps)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("❌ Server failed: %v", err)
		return err
	}
	return nil
}
