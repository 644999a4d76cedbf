package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Auth 会话上限 / OTP 策略
type Auth struct {
	SessionLimit             bool `mapstructure:"session_limit"`
	MaxActiveDevices         int  `mapstructure:"max_active_devices"`
	OTPLength                int  `mapstructure:"otp_length"`
	OTPTTLHours              int  `mapstructure:"otp_ttl_hours"`
	PendingVerificationHours int  `mapstructure:"pending_verification_hours"`
	RoleCacheTTLSec          int  `mapstructure:"role_cache_ttl_sec"`
	LockTTLMs                int  `mapstructure:"lock_ttl_ms"`
}

func (a Auth) OTPTTL() time.Duration { return time.Duration(a.OTPTTLHours) * time.Hour }
func (a Auth) PendingVerification() time.Duration {
	return time.Duration(a.PendingVerificationHours) * time.Hour
}
func (a Auth) RoleCacheTTL() time.Duration { return time.Duration(a.RoleCacheTTLSec) * time.Second }
func (a Auth) LockTTL() time.Duration      { return time.Duration(a.LockTTLMs) * time.Millisecond }

// Admin Role 同时是公开注册的保留角色；管理员只能由引导账号或后台授予
type Admin struct {
	Role              string   `mapstructure:"role"`
	BootstrapRoles    []string `mapstructure:"bootstrap_roles"`
	BootstrapEmail    string   `mapstructure:"bootstrap_email"`
	BootstrapPassword string   `mapstructure:"bootstrap_password"`
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	DB    DB
	Redis Redis `mapstructure:"redis"`
	Auth  Auth  `mapstructure:"auth"`
	Admin Admin `mapstructure:"admin"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "iam")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "iam")
	v.SetDefault("jwt.accesstokenttlmin", 60*24)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "iam.db")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("auth.session_limit", false)
	v.SetDefault("auth.max_active_devices", 4)
	v.SetDefault("auth.otp_length", 6)
	v.SetDefault("auth.otp_ttl_hours", 30*24)
	v.SetDefault("auth.pending_verification_hours", 30*24)
	v.SetDefault("auth.role_cache_ttl_sec", 300)
	v.SetDefault("auth.lock_ttl_ms", 5000)
	v.SetDefault("admin.role", "admin")
	v.SetDefault("admin.bootstrap_roles", []string{"admin", "user"})
	v.SetDefault("admin.bootstrap_email", "")
	v.SetDefault("admin.bootstrap_password", "")
}

func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	if c.Admin.Role == "" {
		return nil, fmt.Errorf("admin.role is required")
	}
	if c.Auth.MaxActiveDevices < 1 {
		return nil, fmt.Errorf("auth.max_active_devices must be >= 1")
	}
	return &c, nil
}
