package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/domain"
	resp "go-gin-gorm-iam/internal/transport/http/response"
)

// 上下文 key，由 middleware.AuthJWT 写入
const (
	CtxUserID = "userId"
	CtxToken  = "token"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// AErr 传输层自己的错误（绑定失败等）
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/auth/login"、"/users/:id"
	Binder  Binder
	Auth    bool // 是否要求登录（检查 userId）
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 在当前分组下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O], mw ...gin.HandlerFunc) {
	h := func(c *gin.Context) {
		if a.Auth && c.GetString(CtxUserID) == "" {
			c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindURI:
			bindErr = c.ShouldBindUri(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	handlers := append(append([]gin.HandlerFunc{}, mw...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default: // 默认 POST
		e.g.POST(a.Path, handlers...)
	}
}

// Fail 统一错误映射；内部错误不回显原因，只记录到 c.Errors
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *AErr
	if errors.As(err, &ae) {
		c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
		return
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		c.JSON(http.StatusOK, resp.Error(resp.CodeForKind(de.Kind), de.Msg))
		return
	}
	c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, ""))
}
