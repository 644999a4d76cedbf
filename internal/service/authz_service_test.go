package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"go-gin-gorm-iam/internal/core/cache"
	"go-gin-gorm-iam/internal/domain"
)

func (f *fixture) role(t *testing.T, name string) *domain.Role {
	t.Helper()
	r, err := f.roles.FindByName(context.Background(), name)
	if err != nil || r == nil {
		t.Fatalf("FindByName(%s) = %v, %v", name, r, err)
	}
	return r
}

func TestSaveRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)

	created, err := f.authz.SaveRole(ctx, RoleForm{Name: strPtr("editor"), EditableName: strPtr("Editor")})
	if err != nil {
		t.Fatalf("SaveRole(create) error = %v", err)
	}
	if created.UUID == "" || created.Name != "editor" {
		t.Fatalf("created = %+v", created)
	}

	updated, err := f.authz.SaveRole(ctx, RoleForm{RoleUUID: created.UUID, Description: strPtr("can edit")})
	if err != nil {
		t.Fatalf("SaveRole(update) error = %v", err)
	}
	if updated.Name != "editor" || updated.EditableName == nil || *updated.EditableName != "Editor" {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "can edit" {
		t.Errorf("description = %v", updated.Description)
	}

	_, err = f.authz.SaveRole(ctx, RoleForm{RoleUUID: "missing", Name: strPtr("x")})
	wantKind(t, err, domain.ErrNotFound)
	_, err = f.authz.SaveRole(ctx, RoleForm{})
	wantKind(t, err, domain.ErrInvalidArgument)
}

func TestSetRolePermissionsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)
	r := f.role(t, "user")

	in := []PermissionInput{
		{Key: "orders", Name: "manage-orders", Read: true, Write: true},
		{Key: "reports", Name: "view-reports", Read: true},
	}
	for i := 0; i < 2; i++ {
		msg, err := f.authz.SetRolePermissions(ctx, r.UUID, in)
		if err != nil {
			t.Fatalf("SetRolePermissions() #%d error = %v", i, err)
		}
		if msg != RolePermissionsUpdated {
			t.Errorf("msg = %q", msg)
		}
	}

	ps, err := f.perms.ListByRole(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListByRole() error = %v", err)
	}
	if len(ps) != 6 {
		t.Fatalf("permission rows = %d, want 6 (3 per key)", len(ps))
	}
	want := map[string]bool{
		"orders/read": true, "orders/write": true, "orders/delete": false,
		"reports/read": true, "reports/write": false, "reports/delete": false,
	}
	for _, p := range ps {
		if got, ok := want[p.Key+"/"+p.SubKey]; !ok || got != p.Status {
			t.Errorf("%s/%s status = %v", p.Key, p.SubKey, p.Status)
		}
	}

	// 再次提交只改 status
	in[0].Write = false
	if _, err := f.authz.SetRolePermissions(ctx, r.UUID, in[:1]); err != nil {
		t.Fatalf("SetRolePermissions(update) error = %v", err)
	}
	p, _ := f.perms.FindByTriple(ctx, r.ID, "orders", domain.SubKeyWrite)
	if p == nil || p.Status {
		t.Errorf("orders/write = %+v, want status false", p)
	}

	_, err = f.authz.SetRolePermissions(ctx, "missing", in)
	wantKind(t, err, domain.ErrNotFound)
}

func TestSetRolePermissionsConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)
	r := f.role(t, "admin")
	in := []PermissionInput{{Key: "users", Name: "manage-users", Read: true, Write: true, Delete: true}}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.authz.SetRolePermissions(ctx, r.UUID, in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SetRolePermissions() error = %v", err)
		}
	}
	ps, _ := f.perms.ListByRole(ctx, r.ID)
	if len(ps) != 3 {
		t.Errorf("permission rows = %d, want 3", len(ps))
	}
}

func TestUserCan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)
	r := f.role(t, "user")
	_, err := f.authz.SetRolePermissions(ctx, r.UUID, []PermissionInput{
		{Key: "orders", Name: "manage-orders", Read: false, Write: false, Delete: false},
		{Key: "billing", Name: "billing", Read: true, Write: true, Delete: true},
	})
	if err != nil {
		t.Fatalf("SetRolePermissions() error = %v", err)
	}

	f.signUp(t, "ada@example.com", "secret123", true)
	token := f.login(t, "ada@example.com", "secret123").Token

	can, err := f.authz.UserCan(ctx, token, "manage-orders")
	if err != nil {
		t.Fatalf("UserCan(false status) error = %v", err)
	}
	if can {
		t.Error("UserCan(manage-orders) = true, want false")
	}
	if can, err := f.authz.UserCan(ctx, token, "billing"); err != nil || !can {
		t.Errorf("UserCan(billing) = %v, %v", can, err)
	}

	_, err = f.authz.UserCan(ctx, token, "Manage-Orders")
	wantKind(t, err, domain.ErrNotFound)

	_, err = f.authz.UserCan(ctx, "garbage", "billing")
	wantKind(t, err, domain.ErrUnauthenticated)

	// 没有用户和没有匹配不区分
	orphan, _ := f.jwt.Issue("no-such-user")
	_, err = f.authz.UserCan(ctx, orphan, "billing")
	wantKind(t, err, domain.ErrNotFound)
}

func TestUserCanWithoutRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)
	u := f.signUp(t, "ada@example.com", "secret123", true)
	if err := f.users.Update(ctx, u.UUID, map[string]any{"role_id": nil}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	token := f.login(t, "ada@example.com", "secret123").Token

	_, err := f.authz.UserCan(ctx, token, "billing")
	wantKind(t, err, domain.ErrNotFound)
}

func TestRoleCacheInvalidation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	f := newFixture(t, false, cache.NewWithClient(rdb))

	form := SignUpForm{Email: "ada@example.com", RoleName: "staff"}
	_, err = f.auth.SignUp(ctx, form)
	wantKind(t, err, domain.ErrInvalidRole)
	if !mr.Exists("iam:role:name:staff") {
		t.Fatal("missing role should be negatively cached")
	}

	staff, err := f.authz.SaveRole(ctx, RoleForm{Name: strPtr("staff")})
	if err != nil {
		t.Fatalf("SaveRole() error = %v", err)
	}
	if _, err := f.auth.SignUp(ctx, form); err != nil {
		t.Fatalf("SignUp() after role created error = %v", err)
	}

	if _, err := f.authz.SaveRole(ctx, RoleForm{RoleUUID: staff.UUID, Name: strPtr("crew")}); err != nil {
		t.Fatalf("SaveRole(rename) error = %v", err)
	}
	_, err = f.auth.SignUp(ctx, SignUpForm{Email: "bob@example.com", RoleName: "staff"})
	wantKind(t, err, domain.ErrInvalidRole)
	if _, err := f.auth.SignUp(ctx, SignUpForm{Email: "bob@example.com", RoleName: "crew"}); err != nil {
		t.Fatalf("SignUp(crew) error = %v", err)
	}
}

func TestListRolesAndEnsureRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, nil)
	if err := f.authz.EnsureRoles(ctx, []string{"user", "auditor", " "}); err != nil {
		t.Fatalf("EnsureRoles() error = %v", err)
	}
	roles, err := f.authz.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles() error = %v", err)
	}
	var names []string
	for _, r := range roles {
		names = append(names, r.Name)
	}
	if len(names) != 3 || names[0] != "user" || names[1] != "admin" || names[2] != "auditor" {
		t.Errorf("roles = %v, want [user admin auditor]", names)
	}
}
