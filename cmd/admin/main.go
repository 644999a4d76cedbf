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
		log.Error("admin api exited", zap.Error(err))
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

	// 路由（后台端），只在内网暴露
	h := cfg.App.Admin
	addr := server.Addr(h.Host, h.Port)
	srv := server.BuildServer(addr, router.NewAdminEngine(a.Deps), 5*time.Second, 10*time.Second, 60*time.Second)

	base := server.BaseURL(h.Host, h.Port)
	log.Info("admin api starting",
		zap.String("addr", addr),
		zap.String("health", base+"/health"),
		zap.String("admin_v1", base+"/admin/v1"),
		zap.String("admin_role", cfg.Admin.Role),
	)
	if err := server.Run(ctx, srv, log); err != nil {
		return err
	}
	log.Info("admin api stopped gracefully")
	return nil
}
