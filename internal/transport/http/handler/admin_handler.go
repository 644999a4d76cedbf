package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/internal/service"
	"go-gin-gorm-iam/internal/transport/http/ez"
)

// AdminHandler 挂在已校验 admin 角色的分组上
type AdminHandler struct {
	auth  *service.AuthService
	authz *service.AuthzService
}

func NewAdminHandler(auth *service.AuthService, authz *service.AuthzService) *AdminHandler {
	return &AdminHandler{auth: auth, authz: authz}
}

func (h *AdminHandler) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin)

	// --- GET /admin/v1/users  用户列表 ---
	ez.RegisterAction(e, ez.Action[service.ListUsersQuery, *service.UserPage]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.ListUsersQuery) (*service.UserPage, error) {
			return h.auth.ListUsers(c.Request.Context(), *in)
		},
	})

	// --- DELETE /admin/v1/users/:id  软删除 ---
	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if id == "" {
				return nil, ez.BadRequest("missing id")
			}
			if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
				return nil, err
			}
			return gin.H{"id": id}, nil
		},
	})

	// --- PUT /admin/v1/users/:id/role  授予角色（管理员只能从这里或引导账号产生） ---
	ez.RegisterAction(e, ez.Action[service.AssignRoleForm, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/role",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.AssignRoleForm) (*domain.User, error) {
			return h.auth.AssignRole(c.Request.Context(), c.Param("id"), in.RoleName)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []domain.Role]{
		Method: http.MethodGet,
		Path:   "/roles",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Role, error) {
			return h.authz.ListRoles(c.Request.Context())
		},
	})

	// 带 roleUuid 为更新，否则新建
	ez.RegisterAction(e, ez.Action[service.RoleForm, *domain.Role]{
		Method: http.MethodPost,
		Path:   "/roles",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.RoleForm) (*domain.Role, error) {
			return h.authz.SaveRole(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[service.SetPermissionsForm, message]{
		Method: http.MethodPost,
		Path:   "/permissions",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.SetPermissionsForm) (message, error) {
			msg, err := h.authz.SetRolePermissions(c.Request.Context(), in.RoleUUID, in.Permissions)
			if err != nil {
				return message{}, err
			}
			return message{msg}, nil
		},
	})
}
