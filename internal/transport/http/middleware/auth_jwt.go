package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/core/auth"
	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/internal/transport/http/ez"
	resp "go-gin-gorm-iam/internal/transport/http/response"
)

type TokenParser interface {
	Subject(token string) (string, error)
}

// SessionChecker 会话上限开启时，被淘汰的 token 不再放行
type SessionChecker interface {
	Enabled() bool
	Active(ctx context.Context, userUUID, token string) (bool, error)
}

type UserLoader interface {
	AuthUser(ctx context.Context, token string) (*domain.User, error)
}

// AuthJWT 校验 bearer token，写入 userId / token
func AuthJWT(tokens TokenParser, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := auth.BearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		uid, err := tokens.Subject(tok)
		if err != nil || uid == "" {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		if sessions != nil && sessions.Enabled() {
			ok, err := sessions.Active(c.Request.Context(), uid, tok)
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
				return
			}
			if !ok {
				c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "session expired"))
				return
			}
		}
		c.Set(ez.CtxUserID, uid)
		c.Set(ez.CtxToken, tok)
		c.Next()
	}
}

// RequireRole 放在 AuthJWT 之后；按库里的当前角色判断，不信任 token 内容
func RequireRole(users UserLoader, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.AuthUser(c.Request.Context(), c.GetString(ez.CtxToken))
		if err != nil {
			ez.Fail(c, err)
			c.Abort()
			return
		}
		if u.Status == domain.UserStatusDeleted || u.Role == nil || u.Role.Name != role {
			c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeForbidden, "forbidden"))
			return
		}
		c.Set("role", u.Role.Name)
		c.Next()
	}
}
