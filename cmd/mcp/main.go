package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/PDFChat/internal/bootstrap"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/mcpServer"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "path to the settings file")
	flag.Parse()

	_ = godotenv.Load()
	settings, err := config.Load(*configPath)
	if err != nil {
		logger_i.NewLogger("main").Error("Invalid settings", "error", err)
		os.Exit(1)
	}

	// stdout carries the protocol
	logger_i.Init(logger_i.Options{Level: settings.Log.SlogLevel(), JSON: settings.Log.JSON, Out: os.Stderr})
	logger := logger_i.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.Build(ctx, settings)
	if err != nil {
		logger.Error("Could not start services", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
		defer cancel()
		core.Shutdown(shutdownCtx)
	}()

	server, err := mcpServer.NewServer(core.Sessions, core.Archive)
	if err != nil {
		logger.Error("Could not create MCP server", "error", err)
		return
	}
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "error", err)
	}
}
