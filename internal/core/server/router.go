package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Name string
	Mode string // gin.DebugMode / gin.ReleaseMode / gin.TestMode
}

// NewRouter 基础 engine：运行模式、CORS、/health、/metrics；业务中间件由调用方挂
func NewRouter(o Options) *gin.Engine {
	if o.Mode != "" {
		gin.SetMode(o.Mode)
	}
	r := gin.New()

	cc := cors.DefaultConfig()
	cc.AllowAllOrigins = true
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", "X-Request-ID")
	r.Use(cors.New(cc))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1, "name": o.Name}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// ModeFor app.env -> gin 运行模式
func ModeFor(env string) string {
	switch env {
	case "prod", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	}
	return gin.DebugMode
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
