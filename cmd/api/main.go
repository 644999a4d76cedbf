package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-gorm-iam/internal/app"
	"go-gin-gorm-iam/internal/core/config"
	"go-gin-gorm-iam/internal/core/logger"
	"go-gin-gorm-iam/internal/core/server"
	"go-gin-gorm-iam/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	log, cleanup := logger.FromConfig(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("user api exited", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	cleanup()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// 路由（用户端）
	h := cfg.App.HTTP
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(addr, router.NewAPIEngine(a.Deps),
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)

	base := server.BaseURL(h.Host, h.Port)
	log.Info("user api starting",
		zap.String("addr", addr),
		zap.String("health", base+"/health"),
		zap.String("api_v1", base+"/api/v1"),
		zap.Bool("session_limit", cfg.Auth.SessionLimit),
	)
	if err := server.Run(ctx, srv, log); err != nil {
		return err
	}
	log.Info("user api stopped gracefully")
	return nil
}
