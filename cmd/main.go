package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/vaccilearn-backend/internal/app"
)

func main() {
	configDir := flag.String("config", ".", "directory holding an optional config.yaml")
	mode := flag.String("mode", "", "override APP_MODE: api, worker or all")
	flag.Parse()

	if *mode != "" {
		_ = os.Setenv("APP_MODE", *mode)
	}
	cfg, err := app.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		a.Log.Error("vaccilearn stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("vaccilearn stopped")
}
