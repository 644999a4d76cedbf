package service

import "go-gin-gorm-iam/internal/domain"

type SignUpForm struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	OTP             string `json:"otp"`
	RoleName        string `json:"roleName" binding:"required"`
	IsSSO           bool   `json:"isSso"`
	SSOID           string `json:"ssoId"`
	IgnoreConflict  bool   `json:"ignoreConflict"`
	State           string `json:"state"`
	Country         string `json:"country"`
	DefaultCurrency string `json:"defaultCurrency"`
}

// LoginForm Username 纯数字按手机号匹配，否则按邮箱
type LoginForm struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	SSOID    string `json:"ssoId"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type ResetOTPForm struct {
	Identifier string `json:"identifier" binding:"required"` // uuid 或 email
}

type VerifyOTPForm struct {
	UUID  string `json:"uuid"`
	Email string `json:"email"`
	OTP   string `json:"otp" binding:"required"`
	Phone string `json:"phone"`
}

type UpdatePasswordForm struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// UpdateProfileForm nil 字段不修改；UUID 由认证中间件填入
type UpdateProfileForm struct {
	UUID            string  `json:"-"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Phone           *string `json:"phone"`
	State           *string `json:"state"`
	Country         *string `json:"country"`
	DefaultCurrency *string `json:"defaultCurrency"`
}

type ListUsersQuery struct {
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Q        string `form:"q"`
	Status   string `form:"status"`
}

type UserPage struct {
	Items    []domain.User `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

type RoleForm struct {
	RoleUUID     string  `json:"roleUuid"`
	Name         *string `json:"name"`
	EditableName *string `json:"editableName"`
	Description  *string `json:"description"`
}

type PermissionInput struct {
	Key    string `json:"key" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Read   bool   `json:"read"`
	Write  bool   `json:"write"`
	Delete bool   `json:"delete"`
}

// status 按 sub_key 取对应开关
func (p PermissionInput) status(subKey string) bool {
	switch subKey {
	case domain.SubKeyRead:
		return p.Read
	case domain.SubKeyWrite:
		return p.Write
	case domain.SubKeyDelete:
		return p.Delete
	}
	return false
}

type SetPermissionsForm struct {
	RoleUUID    string            `json:"roleUuid" binding:"required"`
	Permissions []PermissionInput `json:"permissions" binding:"required,dive"`
}

// AssignRoleForm 后台授予角色
type AssignRoleForm struct {
	RoleName string `json:"roleName" binding:"required"`
}
