package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-iam/internal/core/auth"
	"go-gin-gorm-iam/internal/core/cache"
	"go-gin-gorm-iam/internal/core/database/dbtest"
	"go-gin-gorm-iam/internal/repo"
	"go-gin-gorm-iam/internal/service"
	"go-gin-gorm-iam/pkg/utils"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const (
	rootEmail    = "root@example.com"
	rootPassword = "root-secret"
)

type testApp struct {
	api   *gin.Engine
	admin *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := dbtest.New(t)
	users := repo.NewUserRepo(db)
	roles := repo.NewRoleRepo(db)
	jwter := &auth.JWTer{Secret: []byte("router-secret"), Issuer: "iam-test", TTL: time.Hour}
	locker := cache.NewLocalLocker()
	roleCache := service.NewRoleCache(roles, nil, 0)
	sessions := service.NewSessionLimiter(repo.NewAuthTokenRepo(db), locker, nil, true, 4)

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:    users,
		Roles:    roleCache,
		Hasher:   utils.Bcrypt{},
		Tokens:   jwter,
		Sessions: sessions,
		OTP:      service.NewOTPManager(6, 0, 0),

		ReservedRoles: []string{"admin"},
	})
	authzSvc := service.NewAuthzService(service.AuthzDeps{
		Users:       users,
		Roles:       roles,
		Permissions: repo.NewPermissionRepo(db),
		RoleCache:   roleCache,
		Tokens:      jwter,
		Locker:      locker,
	})
	if err := authzSvc.EnsureRoles(context.Background(), []string{"admin", "user"}); err != nil {
		t.Fatalf("EnsureRoles() error = %v", err)
	}
	if _, err := authSvc.EnsureAdmin(context.Background(), rootEmail, rootPassword, "admin"); err != nil {
		t.Fatalf("EnsureAdmin() error = %v", err)
	}

	d := Deps{
		Mode:      gin.TestMode,
		Auth:      authSvc,
		Authz:     authzSvc,
		Tokens:    jwter,
		Sessions:  sessions,
		AdminRole: "admin",
	}
	return &testApp{api: NewAPIEngine(d), admin: NewAdminEngine(d)}
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s status = %d", method, path, w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s decode: %v (%s)", method, path, err, w.Body.String())
	}
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return v
}

// register 注册 + 验证 + 登录，返回 token
func (a *testApp) register(t *testing.T, email, role string) string {
	t.Helper()
	env := call(t, a.api, http.MethodPost, "/api/v1/auth/users", "", gin.H{
		"email": email, "password": "secret123", "roleName": role, "firstName": "Ada",
	})
	if env.Code != 0 {
		t.Fatalf("signup code = %d (%s)", env.Code, env.Msg)
	}
	u := decode[struct {
		UUID string `json:"uuid"`
		OTP  string `json:"otp"`
	}](t, env)

	// 注册时未传 otp，先重发一个
	env = call(t, a.api, http.MethodPost, "/api/v1/auth/reset-otp", "", gin.H{"identifier": u.UUID})
	otp := decode[struct {
		OTP string `json:"otp"`
	}](t, env).OTP
	if otp == "" {
		t.Fatal("reset-otp returned no otp")
	}
	env = call(t, a.api, http.MethodPost, "/api/v1/auth/verify-otp", "", gin.H{"uuid": u.UUID, "otp": otp})
	if env.Code != 0 {
		t.Fatalf("verify-otp code = %d (%s)", env.Code, env.Msg)
	}

	return a.login(t, email, "secret123")
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	env := call(t, a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": email, "password": password})
	if env.Code != 0 {
		t.Fatalf("login(%s) code = %d (%s)", email, env.Code, env.Msg)
	}
	return decode[service.LoginResult](t, env).Token
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)
	token := a.register(t, "ada@example.com", "user")

	env := call(t, a.api, http.MethodGet, "/api/v1/auth/me", token, nil)
	me := decode[map[string]any](t, env)
	if env.Code != 0 || me["email"] != "ada@example.com" {
		t.Fatalf("me = %d %v", env.Code, me)
	}
	for _, k := range []string{"password", "otp", "passwordHash"} {
		if _, ok := me[k]; ok {
			t.Errorf("/me leaks %q", k)
		}
	}

	env = call(t, a.api, http.MethodPost, "/api/v1/auth/update-profile", token, gin.H{"lastName": "King"})
	if env.Code != 0 || decode[map[string]any](t, env)["lastName"] != "King" {
		t.Errorf("update-profile = %d %s", env.Code, env.Data)
	}

	env = call(t, a.api, http.MethodGet, "/api/v1/auth/user-can/billing", token, nil)
	if env.Code != 404 {
		t.Errorf("user-can(missing) code = %d, want 404", env.Code)
	}

	env = call(t, a.api, http.MethodPost, "/api/v1/auth/logout", token, nil)
	if env.Code != 0 {
		t.Fatalf("logout code = %d", env.Code)
	}
	// 会话已删除，token 不再可用
	env = call(t, a.api, http.MethodGet, "/api/v1/auth/me", token, nil)
	if env.Code != 401 {
		t.Errorf("me after logout code = %d, want 401", env.Code)
	}
}

func TestErrorCodes(t *testing.T) {
	a := newTestApp(t)
	a.register(t, "ada@example.com", "user")

	tests := []struct {
		name string
		path string
		body gin.H
		want int
	}{
		{"invalid role", "/api/v1/auth/users", gin.H{"email": "b@example.com", "roleName": "ghost"}, 400},
		{"binding", "/api/v1/auth/users", gin.H{"email": "not-an-email", "roleName": "user"}, 400},
		{"email exists", "/api/v1/auth/users", gin.H{"email": "ada@example.com", "password": "x", "roleName": "user"}, 409},
		{"bad password", "/api/v1/auth/login", gin.H{"username": "ada@example.com", "password": "nope"}, 401},
		{"wrong otp", "/api/v1/auth/verify-otp", gin.H{"email": "ada@example.com", "otp": "000000x"}, 422},
		{"unknown user otp", "/api/v1/auth/reset-otp", gin.H{"identifier": "nobody@example.com"}, 404},
		{"missing token", "/api/v1/auth/logout", nil, 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := call(t, a.api, http.MethodPost, tt.path, "", tt.body)
			if env.Code != tt.want {
				t.Errorf("code = %d (%s), want %d", env.Code, env.Msg, tt.want)
			}
		})
	}

	// 未验证邮箱不能改密码
	call(t, a.api, http.MethodPost, "/api/v1/auth/users", "", gin.H{"email": "pending@example.com", "roleName": "user"})
	env := call(t, a.api, http.MethodPost, "/api/v1/auth/update-password", "", gin.H{"email": "pending@example.com", "password": "secret123"})
	if env.Code != 412 {
		t.Errorf("update-password(unverified) code = %d, want 412", env.Code)
	}
}

func TestAdminRequiresRole(t *testing.T) {
	a := newTestApp(t)
	userToken := a.register(t, "user@example.com", "user")
	adminToken := a.login(t, rootEmail, rootPassword)

	if env := call(t, a.admin, http.MethodGet, "/admin/v1/users", "", nil); env.Code != 401 {
		t.Errorf("no token code = %d, want 401", env.Code)
	}
	if env := call(t, a.admin, http.MethodGet, "/admin/v1/users", userToken, nil); env.Code != 403 {
		t.Errorf("non-admin code = %d, want 403", env.Code)
	}

	env := call(t, a.admin, http.MethodGet, "/admin/v1/users?q=user@", adminToken, nil)
	page := decode[service.UserPage](t, env)
	if env.Code != 0 || page.Total != 1 {
		t.Fatalf("list users = %d total=%d", env.Code, page.Total)
	}
	victim := page.Items[0].UUID

	env = call(t, a.admin, http.MethodPost, "/admin/v1/roles", adminToken, gin.H{"name": "billing-clerk"})
	role := decode[struct {
		UUID string `json:"uuid"`
	}](t, env)
	if env.Code != 0 || role.UUID == "" {
		t.Fatalf("create role = %d %s", env.Code, env.Data)
	}

	env = call(t, a.admin, http.MethodPost, "/admin/v1/permissions", adminToken, gin.H{
		"roleUuid":    role.UUID,
		"permissions": []gin.H{{"key": "invoices", "name": "invoices", "read": true}},
	})
	if env.Code != 0 || decode[map[string]string](t, env)["message"] != service.RolePermissionsUpdated {
		t.Fatalf("permissions = %d %s", env.Code, env.Data)
	}

	env = call(t, a.admin, http.MethodGet, "/admin/v1/roles", adminToken, nil)
	if roles := decode[[]map[string]any](t, env); len(roles) != 3 {
		t.Errorf("roles = %d, want 3", len(roles))
	}

	env = call(t, a.admin, http.MethodDelete, "/admin/v1/users/"+victim, adminToken, nil)
	if env.Code != 0 {
		t.Fatalf("delete user code = %d (%s)", env.Code, env.Msg)
	}
	if env := call(t, a.admin, http.MethodDelete, "/admin/v1/users/missing", adminToken, nil); env.Code != 404 {
		t.Errorf("delete missing code = %d, want 404", env.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)
	for _, p := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		a.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", p, w.Code)
		}
	}
}

func TestPublicSignupCannotClaimAdmin(t *testing.T) {
	a := newTestApp(t)

	env := call(t, a.api, http.MethodPost, "/api/v1/auth/users", "", gin.H{
		"email": "mallory@example.com", "password": "secret123", "roleName": "admin",
	})
	if env.Code != 400 {
		t.Fatalf("signup as admin code = %d (%s), want 400", env.Code, env.Msg)
	}
	if env := call(t, a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"username": "mallory@example.com", "password": "secret123",
	}); env.Code != 401 {
		t.Errorf("login after rejected signup code = %d, want 401", env.Code)
	}

	// 以普通角色注册的账号进不了后台，直到管理员授予角色
	token := a.register(t, "mallory@example.com", "user")
	if env := call(t, a.admin, http.MethodDelete, "/admin/v1/users/anything", token, nil); env.Code != 403 {
		t.Fatalf("non-admin delete code = %d, want 403", env.Code)
	}

	rootToken := a.login(t, rootEmail, rootPassword)
	me := decode[struct {
		UUID string `json:"uuid"`
	}](t, call(t, a.api, http.MethodGet, "/api/v1/auth/me", token, nil))
	env = call(t, a.admin, http.MethodPut, "/admin/v1/users/"+me.UUID+"/role", rootToken, gin.H{"roleName": "admin"})
	if env.Code != 0 {
		t.Fatalf("assign role code = %d (%s)", env.Code, env.Msg)
	}
	if env := call(t, a.admin, http.MethodGet, "/admin/v1/users", token, nil); env.Code != 0 {
		t.Errorf("promoted user code = %d, want 0", env.Code)
	}
}
