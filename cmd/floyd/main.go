package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	floyd "github.com/cy99/floyd"
	"github.com/cy99/floyd/internal/configuration"
	"github.com/cy99/floyd/internal/logging"
)

func main() {
	configDir := flag.String("config-dir", ".", "directory holding floyd.yml")
	flag.Parse()

	cfg, err := configuration.Load(*configDir)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Init(cfg.Application.LogLevel)

	node, err := floyd.Open(cfg)
	if err != nil {
		slog.Error("failed to open node", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("shutting down", "signal", s.String())

	if err := node.Close(); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
