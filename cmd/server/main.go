package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahorrofamiliar/ahorro-be/internal/config"
	"github.com/ahorrofamiliar/ahorro-be/internal/platform/logger"
	"github.com/ahorrofamiliar/ahorro-be/internal/server"
	"github.com/ahorrofamiliar/ahorro-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("load config", "error", err)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.DatabaseURL, postgres.Options{
		GoalOverridesEnabled: cfg.GoalOverridesEnabled,
	})
	if err != nil {
		zlog.Fatal("init database", "error", err)
	}
	defer store.Close()

	srv := server.New(cfg, store, store, zlog)

	go func() {
		zlog.Info("ahorro backend listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zlog.Error("graceful shutdown error", "error", err)
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
