package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-gin-gorm-iam/internal/core/auth"
	"go-gin-gorm-iam/internal/core/cache"
	"go-gin-gorm-iam/internal/core/database/dbtest"
	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/internal/repo"
	"go-gin-gorm-iam/pkg/utils"
)

const testOTP = "424242"

type fixture struct {
	auth   *AuthService
	authz  *AuthzService
	users  *repo.UserRepo
	roles  *repo.RoleRepo
	perms  *repo.PermissionRepo
	tokens *repo.AuthTokenRepo
	otp    *OTPManager
	jwt    *auth.JWTer
}

func newFixture(t *testing.T, sessionLimit bool, rc *cache.Cache) *fixture {
	t.Helper()
	db := dbtest.New(t)

	f := &fixture{
		users:  repo.NewUserRepo(db),
		roles:  repo.NewRoleRepo(db),
		perms:  repo.NewPermissionRepo(db),
		tokens: repo.NewAuthTokenRepo(db),
		otp:    NewOTPManager(6, 0, 0),
		jwt:    &auth.JWTer{Secret: []byte("test-secret"), Issuer: "iam-test", TTL: time.Hour},
	}
	f.otp.Gen = func(int) (string, error) { return testOTP, nil }

	locker := cache.NewLocalLocker()
	roleCache := NewRoleCache(f.roles, rc, time.Minute)
	f.auth = NewAuthService(AuthDeps{
		Users:    f.users,
		Roles:    roleCache,
		Hasher:   utils.Bcrypt{},
		Tokens:   f.jwt,
		Sessions: NewSessionLimiter(f.tokens, locker, nil, sessionLimit, 4),
		OTP:      f.otp,

		ReservedRoles: []string{"admin"},
	})
	f.authz = NewAuthzService(AuthzDeps{
		Users:       f.users,
		Roles:       f.roles,
		Permissions: f.perms,
		RoleCache:   roleCache,
		Tokens:      f.jwt,
		Locker:      locker,
	})
	if err := f.authz.EnsureRoles(context.Background(), []string{"user", "admin"}); err != nil {
		t.Fatalf("EnsureRoles() error = %v", err)
	}
	return f
}

// signUp 注册并（可选）完成邮箱验证
func (f *fixture) signUp(t *testing.T, email, password string, verify bool) *domain.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.auth.SignUp(ctx, SignUpForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  password,
		OTP:       testOTP,
		RoleName:  "user",
	})
	if err != nil {
		t.Fatalf("SignUp(%s) error = %v", email, err)
	}
	if verify {
		if _, err := f.auth.VerifyOTP(ctx, VerifyOTPForm{UUID: u.UUID, OTP: testOTP}); err != nil {
			t.Fatalf("VerifyOTP(%s) error = %v", email, err)
		}
	}
	return u
}

func (f *fixture) login(t *testing.T, username, password string) *LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), LoginForm{Username: username, Password: password})
	if err != nil {
		t.Fatalf("Login(%s) error = %v", username, err)
	}
	return res
}

func wantKind(t *testing.T, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("error = %v, want kind %v", err, domain.KindOf(target))
	}
}
