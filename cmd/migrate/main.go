// README: Applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gohappygo/internal/config"
	"gohappygo/internal/infra"
	"gohappygo/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	log := logger.WithService("migrate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDB(ctx, cfg.DB.DSN, infra.DBOptions{MaxConns: 2})
	if err != nil {
		log.Error("connect", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	res, err := infra.Migrate(ctx, pool)
	if err != nil {
		log.Error("migrate", "error", err)
		os.Exit(1)
	}
	log.Info("schema up to date", "version", res.Version, "applied", res.Applied)
}
