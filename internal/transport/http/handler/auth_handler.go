package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/internal/service"
	"go-gin-gorm-iam/internal/transport/http/ez"
)

// otpUser 只有注册 / 重发 OTP 的响应带出验证码，由调用方负责投递
type otpUser struct {
	*domain.User
	OTP          string     `json:"otp,omitempty"`
	OTPExpiresAt *time.Time `json:"otpExpiresAt,omitempty"`
}

func withOTP(u *domain.User) otpUser {
	return otpUser{User: u, OTP: u.OTP, OTPExpiresAt: u.OTPExpiresAt}
}

type message struct {
	Message string `json:"message"`
}

type AuthHandler struct {
	auth        *service.AuthService
	authz       *service.AuthzService
	requireAuth gin.HandlerFunc
}

func NewAuthHandler(auth *service.AuthService, authz *service.AuthzService, requireAuth gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{auth: auth, authz: authz, requireAuth: requireAuth}
}

func (h *AuthHandler) Priority() int { return 10 }

// MountAPI /api/v1/auth/*
func (h *AuthHandler) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api.Group("/auth"))

	ez.RegisterAction(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return h.auth.AuthUser(c.Request.Context(), c.GetString(ez.CtxToken))
		},
	}, h.requireAuth)

	ez.RegisterAction(e, ez.Action[service.SignUpForm, otpUser]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.SignUpForm) (otpUser, error) {
			u, err := h.auth.SignUp(c.Request.Context(), *in)
			if err != nil {
				return otpUser{}, err
			}
			return withOTP(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[service.LoginForm, *service.LoginResult]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginForm) (*service.LoginResult, error) {
			return h.auth.Login(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[service.ResetOTPForm, otpUser]{
		Method: http.MethodPost,
		Path:   "/reset-otp",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.ResetOTPForm) (otpUser, error) {
			u, err := h.auth.ResetOTP(c.Request.Context(), in.Identifier)
			if err != nil {
				return otpUser{}, err
			}
			return withOTP(u), nil
		},
	})

	ez.RegisterAction(e, ez.Action[service.VerifyOTPForm, *domain.User]{
		Method: http.MethodPost,
		Path:   "/verify-otp",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.VerifyOTPForm) (*domain.User, error) {
			if in.UUID == "" && in.Email == "" {
				return nil, ez.BadRequest("uuid or email required")
			}
			return h.auth.VerifyOTP(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[service.UpdatePasswordForm, message]{
		Method: http.MethodPost,
		Path:   "/update-password",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.UpdatePasswordForm) (message, error) {
			if err := h.auth.UpdatePassword(c.Request.Context(), *in); err != nil {
				return message{}, err
			}
			return message{"Password updated successfully"}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[service.UpdateProfileForm, *domain.User]{
		Method: http.MethodPost,
		Path:   "/update-profile",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *service.UpdateProfileForm) (*domain.User, error) {
			in.UUID = c.GetString(ez.CtxUserID)
			return h.auth.UpdateProfile(c.Request.Context(), *in)
		},
	}, h.requireAuth)

	ez.RegisterAction(e, ez.Action[struct{}, message]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (message, error) {
			if err := h.auth.Logout(c.Request.Context(), c.GetString(ez.CtxToken)); err != nil {
				return message{}, err
			}
			return message{"Logged out successfully"}, nil
		},
	}, h.requireAuth)

	type canIn struct {
		PermissionName string `uri:"permission_name" binding:"required"`
	}
	type canOut struct {
		Permission string `json:"permission"`
		Allowed    bool   `json:"allowed"`
	}
	ez.RegisterAction(e, ez.Action[canIn, canOut]{
		Method: http.MethodGet,
		Path:   "/user-can/:permission_name",
		Binder: ez.BindURI,
		Auth:   true,
		Handler: func(c *gin.Context, in *canIn) (canOut, error) {
			ok, err := h.authz.UserCan(c.Request.Context(), c.GetString(ez.CtxToken), in.PermissionName)
			if err != nil {
				return canOut{}, err
			}
			return canOut{Permission: in.PermissionName, Allowed: ok}, nil
		},
	}, h.requireAuth)
}
