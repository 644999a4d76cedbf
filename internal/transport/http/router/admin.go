package router

import (
	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/transport/http/handler"
	mdw "go-gin-gorm-iam/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps) *gin.Engine {
	r := baseEngine(d, "iam-admin")

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.Tokens, d.Sessions), mdw.RequireRole(d.Auth, d.AdminRole))

	var reg Registry
	reg.Register(handler.NewAdminHandler(d.Auth, d.Authz))
	reg.MountAllAdmin(admin)
	return r
}
