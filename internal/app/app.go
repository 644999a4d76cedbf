// Package app 把配置装配成两个 HTTP 入口共用的依赖
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"go-gin-gorm-iam/internal/core/auth"
	"go-gin-gorm-iam/internal/core/cache"
	"go-gin-gorm-iam/internal/core/config"
	"go-gin-gorm-iam/internal/core/database"
	"go-gin-gorm-iam/internal/core/logger"
	"go-gin-gorm-iam/internal/core/server"
	"go-gin-gorm-iam/internal/repo"
	"go-gin-gorm-iam/internal/service"
	"go-gin-gorm-iam/internal/transport/http/router"
	"go-gin-gorm-iam/pkg/utils"
)

type App struct {
	DB    *gorm.DB
	Cache *cache.Cache // redis 未配置时为 nil
	Deps  router.Deps
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             logger.ToStdLogger(log.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	a := &App{DB: db}
	if err := a.wire(ctx, cfg, log); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db := a.DB
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Info("automigrate done")
	}

	var locker service.Locker = cache.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.Cache.RDB.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		locker = cache.NewRedisLocker(a.Cache.RDB, cfg.Auth.LockTTL())
		log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	users := repo.NewUserRepo(db)
	roles := repo.NewRoleRepo(db)
	roleCache := service.NewRoleCache(roles, a.Cache, cfg.Auth.RoleCacheTTL())
	sessions := service.NewSessionLimiter(
		repo.NewAuthTokenRepo(db), locker, log.Named("session"),
		cfg.Auth.SessionLimit, cfg.Auth.MaxActiveDevices,
	)

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:    users,
		Roles:    roleCache,
		Hasher:   utils.Bcrypt{},
		Tokens:   jwter,
		Sessions: sessions,
		OTP:      service.NewOTPManager(cfg.Auth.OTPLength, cfg.Auth.OTPTTL(), cfg.Auth.PendingVerification()),
		Log:      log.Named("auth"),

		ReservedRoles: []string{cfg.Admin.Role},
	})
	authzSvc := service.NewAuthzService(service.AuthzDeps{
		Users:       users,
		Roles:       roles,
		Permissions: repo.NewPermissionRepo(db),
		RoleCache:   roleCache,
		Tokens:      jwter,
		Locker:      locker,
		Log:         log.Named("authz"),
	})
	if err := authzSvc.EnsureRoles(ctx, cfg.Admin.BootstrapRoles); err != nil {
		return fmt.Errorf("bootstrap roles: %w", err)
	}
	if cfg.Admin.BootstrapEmail != "" {
		u, err := authSvc.EnsureAdmin(ctx, cfg.Admin.BootstrapEmail, cfg.Admin.BootstrapPassword, cfg.Admin.Role)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("bootstrap admin ready", zap.String("user_uuid", u.UUID))
	}

	a.Deps = router.Deps{
		Log:       log,
		Mode:      server.ModeFor(cfg.App.Env),
		Auth:      authSvc,
		Authz:     authzSvc,
		Tokens:    jwter,
		Sessions:  sessions,
		AdminRole: cfg.Admin.Role,
	}
	return nil
}

func (a *App) Close() {
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
