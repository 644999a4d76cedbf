package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/pkg/utils"
)

const (
	deletedFirstName = "Deleted"
	deletedLastName  = "Account"
)

type AuthDeps struct {
	Users    domain.UserRepository
	Roles    *RoleCache
	Hasher   Hasher
	Tokens   TokenCodec
	Sessions *SessionLimiter
	OTP      *OTPManager
	Log      *zap.Logger

	// ReservedRoles 公开注册不可申领的角色（通常是后台管理员角色）
	ReservedRoles []string
}

type AuthService struct {
	users    domain.UserRepository
	roles    *RoleCache
	hasher   Hasher
	tokens   TokenCodec
	sessions *SessionLimiter
	otp      *OTPManager
	log      *zap.Logger
	reserved map[string]struct{}
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	reserved := make(map[string]struct{}, len(d.ReservedRoles))
	for _, name := range d.ReservedRoles {
		if name = strings.TrimSpace(name); name != "" {
			reserved[name] = struct{}{}
		}
	}
	return &AuthService{
		reserved: reserved,
		users:    d.Users,
		roles:    d.Roles,
		hasher:   d.Hasher,
		tokens:   d.Tokens,
		sessions: d.Sessions,
		otp:      d.OTP,
		log:      d.Log,
	}
}

func (s *AuthService) now() time.Time { return s.otp.Now() }

// AuthUser 仓储出错也按未认证处理
func (s *AuthService) AuthUser(ctx context.Context, token string) (*domain.User, error) {
	uid, err := s.tokens.Subject(token)
	if err != nil || uid == "" {
		return nil, domain.Unauthenticated("authentication failed")
	}
	u, err := s.users.FindByUUIDWithRole(ctx, uid)
	if err != nil {
		s.log.Warn("auth user lookup failed", zap.String("user_uuid", uid), zap.Error(err))
		return nil, domain.Unauthenticated("authentication failed")
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

// SignUp 创建用户，或按既有邮箱/手机号对账
func (s *AuthService) SignUp(ctx context.Context, f SignUpForm) (*domain.User, error) {
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)

	role, err := s.roles.byName(ctx, f.RoleName)
	if err != nil {
		return nil, domain.Internal("find role", err)
	}
	if role == nil {
		return nil, domain.InvalidRole("user role must be specified")
	}
	if _, ok := s.reserved[role.Name]; ok {
		return nil, domain.InvalidRole("role not available for signup")
	}
	if f.Email == "" {
		return nil, domain.InvalidArgument("email required")
	}

	if f.Phone != "" {
		owner, err := s.users.FindByPhone(ctx, f.Phone)
		if err != nil {
			return nil, domain.Internal("find user by phone", err)
		}
		if owner != nil && owner.Email != f.Email {
			if owner.PhoneVerifiedAt != nil {
				return nil, domain.Conflict("phone exists")
			}
			// 未验证的手机号可被重新认领：给原持有人重发 OTP
			return s.ResetOTP(ctx, owner.UUID)
		}
	}

	existing, err := s.users.FindByEmail(ctx, f.Email)
	if err != nil {
		return nil, domain.Internal("find user by email", err)
	}
	if existing == nil {
		return s.createUser(ctx, f, role.ID)
	}

	if f.IgnoreConflict {
		// 局部更新：未带的字段保持原值，包括待验证的 OTP
		fields := map[string]any{}
		setIfNotEmpty(fields, "otp", f.OTP)
		setIfNotEmpty(fields, "first_name", f.FirstName)
		setIfNotEmpty(fields, "last_name", f.LastName)
		setIfNotEmpty(fields, "state", f.State)
		setIfNotEmpty(fields, "country", f.Country)
		setIfNotEmpty(fields, "default_currency", f.DefaultCurrency)
		if err := s.users.Update(ctx, existing.UUID, fields); err != nil {
			return nil, domain.Internal("update user", err)
		}
		return s.reload(ctx, existing.UUID)
	}
	if existing.EmailVerified() && existing.HasPassword() {
		return nil, domain.Conflict("email exists")
	}
	return existing, nil
}

func (s *AuthService) createUser(ctx context.Context, f SignUpForm, roleID uint) (*domain.User, error) {
	now := s.now()
	hash := ""
	if f.Password != "" {
		h, err := s.hasher.Hash(f.Password)
		if err != nil {
			return nil, domain.Internal("hash password", err)
		}
		hash = h
	}
	pending := s.otp.PendingExpiry()
	u := &domain.User{
		UUID:              utils.NewID(),
		FirstName:         f.FirstName,
		LastName:          f.LastName,
		Email:             f.Email,
		Phone:             f.Phone,
		PasswordHash:      hash,
		PasswordCreatedAt: &now,
		Status:            domain.UserStatusActive,
		OTP:               f.OTP,
		OTPExpiresAt:      &pending,
		RoleID:            &roleID,
		SSOID:             f.SSOID,
		State:             f.State,
		Country:           f.Country,
		DefaultCurrency:   f.DefaultCurrency,
	}
	if f.IsSSO {
		u.EmailVerifiedAt = &now
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, domain.Internal("create user", err)
	}
	s.log.Info("user signed up", zap.String("user_uuid", u.UUID), zap.Bool("sso", f.IsSSO))
	return u, nil
}

// AssignRole 后台改用户角色，不受注册保留角色限制
func (s *AuthService) AssignRole(ctx context.Context, userUUID, roleName string) (*domain.User, error) {
	role, err := s.roles.byName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return nil, domain.Internal("find role", err)
	}
	if role == nil {
		return nil, domain.InvalidRole("role not found")
	}
	u, err := s.users.FindByUUID(ctx, userUUID)
	if err != nil {
		return nil, domain.Internal("find user", err)
	}
	if u == nil || u.Status == domain.UserStatusDeleted {
		return nil, domain.NotFound("user not found")
	}
	if err := s.users.Update(ctx, u.UUID, map[string]any{"role_id": role.ID}); err != nil {
		return nil, domain.Internal("assign role", err)
	}
	s.log.Info("role assigned", zap.String("user_uuid", u.UUID), zap.String("role", role.Name))
	return s.reload(ctx, u.UUID)
}

// EnsureAdmin 启动时确保引导管理员存在：邮箱不存在则建号（邮箱视为已验证），已存在只改角色
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, roleName string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.InvalidArgument("email required")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.Internal("find user by email", err)
	}
	if u != nil {
		return s.AssignRole(ctx, u.UUID, roleName)
	}
	if password == "" {
		return nil, domain.InvalidArgument("password required for new admin")
	}
	role, err := s.roles.byName(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return nil, domain.Internal("find role", err)
	}
	if role == nil {
		return nil, domain.InvalidRole("role not found")
	}
	u, err = s.createUser(ctx, SignUpForm{Email: email, Password: password, RoleName: role.Name}, role.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u.UUID, map[string]any{"email_verified_at": s.now()}); err != nil {
		return nil, domain.Internal("verify email", err)
	}
	return s.reload(ctx, u.UUID)
}

func (s *AuthService) Login(ctx context.Context, f LoginForm) (*LoginResult, error) {
	username := strings.TrimSpace(f.Username)
	column := "email"
	if isNumeric(username) {
		column = "phone"
	}
	u, err := s.users.FindCredentials(ctx, column, username)
	if err != nil {
		return nil, domain.Internal("find credentials", err)
	}
	if u == nil || u.Status == domain.UserStatusDeleted {
		loginTotal.WithLabelValues("no_user").Inc()
		return nil, domain.Unauthenticated("no such user")
	}

	if f.Password != "" {
		if !s.hasher.Verify(f.Password, u.PasswordHash) {
			loginTotal.WithLabelValues("bad_password").Inc()
			s.log.Info("login rejected", zap.String("user_uuid", u.UUID), zap.String("reason", "password"))
			return nil, domain.Unauthenticated("credentials do not match")
		}
	} else if u.SSOID != "" && u.SSOID != f.SSOID {
		loginTotal.WithLabelValues("bad_sso").Inc()
		s.log.Info("login rejected", zap.String("user_uuid", u.UUID), zap.String("reason", "sso"))
		return nil, domain.Unauthenticated("credentials do not match")
	}

	token, err := s.tokens.Issue(u.UUID)
	if err != nil || token == "" {
		loginTotal.WithLabelValues("token").Inc()
		return nil, domain.Unauthenticated("credentials do not match")
	}
	if err := s.sessions.Register(ctx, u.UUID, token); err != nil {
		return nil, err
	}

	loginTotal.WithLabelValues("ok").Inc()
	u.PasswordHash = ""
	u.SSOID = ""
	return &LoginResult{Token: token, User: u}, nil
}

// ResetOTP identifier 先按 uuid 再按 email 查
func (s *AuthService) ResetOTP(ctx context.Context, identifier string) (*domain.User, error) {
	u, err := s.findByUUIDOrEmail(ctx, identifier, identifier)
	if err != nil {
		return nil, err
	}
	code, exp, err := s.otp.Issue()
	if err != nil {
		return nil, domain.Internal("generate otp", err)
	}
	if err := s.users.Update(ctx, u.UUID, map[string]any{"otp": code, "otp_expires_at": exp}); err != nil {
		return nil, domain.Internal("store otp", err)
	}
	u.OTP = code
	u.OTPExpiresAt = &exp
	return u, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, f VerifyOTPForm) (*domain.User, error) {
	u, err := s.findByUUIDOrEmail(ctx, f.UUID, f.Email)
	if err != nil {
		return nil, err
	}
	if err := s.otp.Check(u, f.OTP); err != nil {
		otpVerifyTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
		return nil, err
	}
	otpVerifyTotal.WithLabelValues("ok").Inc()

	now := s.now()
	phone := strings.TrimSpace(f.Phone)
	switch {
	case phone != "":
		owner, err := s.users.FindByPhone(ctx, phone)
		if err != nil {
			return nil, domain.Internal("find user by phone", err)
		}
		if owner != nil && owner.UUID != u.UUID && owner.PhoneVerifiedAt != nil {
			return nil, domain.Conflict("phone exists")
		}
		if err := s.users.Update(ctx, u.UUID, map[string]any{"phone": phone, "phone_verified_at": now}); err != nil {
			return nil, domain.Internal("verify phone", err)
		}
	case u.EmailVerifiedAt == nil:
		if err := s.users.Update(ctx, u.UUID, map[string]any{"email_verified_at": now}); err != nil {
			return nil, domain.Internal("verify email", err)
		}
	}
	return s.reload(ctx, u.UUID)
}

func (s *AuthService) UpdatePassword(ctx context.Context, f UpdatePasswordForm) error {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(f.Email))
	if err != nil {
		return domain.Internal("find user by email", err)
	}
	if u == nil {
		return domain.NotFound("user not found")
	}
	if !u.EmailVerified() {
		return domain.PreconditionFailed("email not verified")
	}
	hash, err := s.hasher.Hash(f.Password)
	if err != nil {
		return domain.Internal("hash password", err)
	}
	fields := map[string]any{"password": hash, "password_created_at": s.now()}
	if err := s.users.Update(ctx, u.UUID, fields); err != nil {
		return domain.Internal("update password", err)
	}
	s.log.Info("password updated", zap.String("user_uuid", u.UUID))
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, f UpdateProfileForm) (*domain.User, error) {
	u, err := s.users.FindByUUID(ctx, f.UUID)
	if err != nil {
		return nil, domain.Internal("find user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}

	fields := map[string]any{}
	if f.Phone != nil {
		phone := strings.TrimSpace(*f.Phone)
		if phone != "" && phone != u.Phone {
			owner, err := s.users.FindByPhone(ctx, phone)
			if err != nil {
				return nil, domain.Internal("find user by phone", err)
			}
			if owner != nil {
				return nil, domain.Conflict("phone exists")
			}
			fields["phone"] = phone
			fields["phone_verified_at"] = nil
		}
	}
	if f.Email != nil {
		email := strings.TrimSpace(*f.Email)
		if email != "" && email != u.Email {
			owner, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, domain.Internal("find user by email", err)
			}
			if owner != nil && owner.UUID != u.UUID {
				return nil, domain.Conflict("email exists")
			}
			fields["email"] = email
		}
	}
	setIfPresent(fields, "first_name", f.FirstName)
	setIfPresent(fields, "last_name", f.LastName)
	setIfPresent(fields, "state", f.State)
	setIfPresent(fields, "country", f.Country)
	setIfPresent(fields, "default_currency", f.DefaultCurrency)

	if err := s.users.Update(ctx, u.UUID, fields); err != nil {
		return nil, domain.Internal("update profile", err)
	}
	return s.reload(ctx, u.UUID)
}

// Logout 只删除 (user, token) 这一条会话；会话不存在也返回成功
func (s *AuthService) Logout(ctx context.Context, token string) error {
	uid, err := s.tokens.Subject(token)
	if err != nil || uid == "" {
		return domain.Unauthenticated("authentication failed")
	}
	return s.sessions.Revoke(ctx, uid, token)
}

// DeleteUser 软删除：抹掉身份信息，保留行
func (s *AuthService) DeleteUser(ctx context.Context, uuid string) error {
	u, err := s.users.FindByUUID(ctx, uuid)
	if err != nil {
		return domain.Internal("find user", err)
	}
	if u == nil {
		return domain.NotFound("user not found")
	}
	err = s.users.Update(ctx, uuid, map[string]any{
		"first_name": deletedFirstName,
		"last_name":  deletedLastName,
		"email":      "",
		"phone":      "",
		"status":     domain.UserStatusDeleted,
	})
	if err != nil {
		return domain.Internal("delete user", err)
	}
	s.log.Info("user deleted", zap.String("user_uuid", uuid))
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, q ListUsersQuery) (*UserPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	items, total, err := s.users.List(ctx, domain.UserListQuery{
		Offset: (q.Page - 1) * q.PageSize,
		Limit:  q.PageSize,
		Q:      q.Q,
		Status: q.Status,
	})
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	return &UserPage{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *AuthService) findByUUIDOrEmail(ctx context.Context, uuid, email string) (*domain.User, error) {
	u, err := s.users.FindByUUID(ctx, strings.TrimSpace(uuid))
	if err != nil {
		return nil, domain.Internal("find user", err)
	}
	if u == nil && email != "" {
		if u, err = s.users.FindByEmail(ctx, strings.TrimSpace(email)); err != nil {
			return nil, domain.Internal("find user by email", err)
		}
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func (s *AuthService) reload(ctx context.Context, uuid string) (*domain.User, error) {
	u, err := s.users.FindByUUIDWithRole(ctx, uuid)
	if err != nil {
		return nil, domain.Internal("reload user", err)
	}
	if u == nil {
		return nil, domain.NotFound("user not found")
	}
	return u, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func setIfNotEmpty(m map[string]any, col, v string) {
	if v != "" {
		m[col] = v
	}
}

// setIfPresent 空串视同未传，不会清空原值
func setIfPresent(m map[string]any, col string, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		m[col] = t
	}
}
