package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-iam/internal/core/server"
	"go-gin-gorm-iam/internal/service"
	"go-gin-gorm-iam/internal/transport/http/handler"
	mdw "go-gin-gorm-iam/internal/transport/http/middleware"
)

type Deps struct {
	Log       *zap.Logger
	Mode      string
	Auth      *service.AuthService
	Authz     *service.AuthzService
	Tokens    mdw.TokenParser
	Sessions  mdw.SessionChecker
	AdminRole string
}

func (d Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

func baseEngine(d Deps, name string) *gin.Engine {
	l := d.logger()
	r := server.NewRouter(server.Options{Name: name, Mode: d.Mode})
	r.Use(
		mdw.Recovery(l),
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)
	return r
}

func NewAPIEngine(d Deps) *gin.Engine {
	r := baseEngine(d, "iam-api")
	api := r.Group("/api/v1")

	var reg Registry
	reg.Register(handler.NewAuthHandler(d.Auth, d.Authz, mdw.AuthJWT(d.Tokens, d.Sessions)))
	reg.MountAllAPI(api)
	return r
}
