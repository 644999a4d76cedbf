package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/pkg/utils"
)

const RolePermissionsUpdated = "Role permissions updated"

type AuthzDeps struct {
	Users       domain.UserRepository
	Roles       domain.RoleRepository
	Permissions domain.PermissionRepository
	RoleCache   *RoleCache
	Tokens      TokenCodec
	Locker      Locker
	Log         *zap.Logger
}

type AuthzService struct {
	users  domain.UserRepository
	roles  domain.RoleRepository
	perms  domain.PermissionRepository
	cache  *RoleCache
	tokens TokenCodec
	locker Locker
	log    *zap.Logger
}

func NewAuthzService(d AuthzDeps) *AuthzService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.RoleCache == nil {
		d.RoleCache = NewRoleCache(d.Roles, nil, 0)
	}
	return &AuthzService{
		users:  d.Users,
		roles:  d.Roles,
		perms:  d.Permissions,
		cache:  d.RoleCache,
		tokens: d.Tokens,
		locker: d.Locker,
		log:    d.Log,
	}
}

// SaveRole 带 RoleUUID 时更新已提供的字段，否则新建
func (s *AuthzService) SaveRole(ctx context.Context, f RoleForm) (*domain.Role, error) {
	if f.RoleUUID != "" {
		return s.updateRole(ctx, f)
	}
	name := ""
	if f.Name != nil {
		name = strings.TrimSpace(*f.Name)
	}
	if name == "" {
		return nil, domain.InvalidArgument("role name required")
	}
	role := &domain.Role{
		UUID:         utils.NewID(),
		Name:         name,
		EditableName: f.EditableName,
		Description:  f.Description,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, domain.Internal("create role", err)
	}
	s.cache.invalidate(ctx, name)
	s.log.Info("role created", zap.String("role_uuid", role.UUID), zap.String("name", name))
	return role, nil
}

func (s *AuthzService) updateRole(ctx context.Context, f RoleForm) (*domain.Role, error) {
	role, err := s.roles.FindByUUID(ctx, f.RoleUUID)
	if err != nil {
		return nil, domain.Internal("find role", err)
	}
	if role == nil {
		return nil, domain.NotFound("role not found")
	}
	fields := map[string]any{}
	if f.Name != nil && strings.TrimSpace(*f.Name) != "" {
		fields["name"] = strings.TrimSpace(*f.Name)
	}
	if f.EditableName != nil {
		fields["editable_name"] = *f.EditableName
	}
	if f.Description != nil {
		fields["description"] = *f.Description
	}
	if err := s.roles.Update(ctx, role.UUID, fields); err != nil {
		return nil, domain.Internal("update role", err)
	}

	oldName := role.Name
	if role, err = s.roles.FindByUUID(ctx, f.RoleUUID); err != nil {
		return nil, domain.Internal("reload role", err)
	}
	s.cache.invalidate(ctx, oldName, role.Name)
	return role, nil
}

// SetRolePermissions 每个 key 按 read/write/delete 三行 upsert，同一角色串行执行
func (s *AuthzService) SetRolePermissions(ctx context.Context, roleUUID string, list []PermissionInput) (string, error) {
	role, err := s.roles.FindByUUID(ctx, roleUUID)
	if err != nil {
		return "", domain.Internal("find role", err)
	}
	if role == nil {
		return "", domain.NotFound("role not found")
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "role-perms:"+role.UUID)
		if err != nil {
			return "", domain.Internal("lock role", err)
		}
		defer unlock()
	}

	for _, in := range list {
		key := strings.TrimSpace(in.Key)
		if key == "" {
			return "", domain.InvalidArgument("permission key required")
		}
		for _, sub := range domain.SubKeys {
			status := in.status(sub)
			cur, err := s.perms.FindByTriple(ctx, role.ID, key, sub)
			if err != nil {
				return "", domain.Internal("find permission", err)
			}
			if cur != nil {
				if err := s.perms.UpdateStatus(ctx, cur.UUID, status); err != nil {
					return "", domain.Internal("update permission", err)
				}
				continue
			}
			p := &domain.Permission{
				UUID:   utils.NewID(),
				RoleID: role.ID,
				Key:    key,
				SubKey: sub,
				Name:   in.Name,
				Status: status,
			}
			if err := s.perms.Upsert(ctx, p); err != nil {
				return "", domain.Internal("create permission", err)
			}
		}
	}
	s.log.Info("role permissions updated", zap.String("role_uuid", role.UUID), zap.Int("keys", len(list)))
	return RolePermissionsUpdated, nil
}

// UserCan 取角色下第一个 name 完全匹配的权限；无用户、无角色、无匹配都是 NotFound
func (s *AuthzService) UserCan(ctx context.Context, token, permissionName string) (bool, error) {
	uid, err := s.tokens.Subject(token)
	if err != nil || uid == "" {
		return false, domain.Unauthenticated("authentication failed")
	}
	u, err := s.users.FindByUUIDWithRole(ctx, uid)
	if err != nil {
		return false, domain.Internal("find user", err)
	}
	if u != nil && u.Role != nil {
		for _, p := range u.Role.Permissions {
			if p.Name == permissionName {
				permissionChecks.WithLabelValues(boolLabel(p.Status)).Inc()
				return p.Status, nil
			}
		}
	}
	permissionChecks.WithLabelValues("missing").Inc()
	return false, domain.NotFound("permission not found")
}

func (s *AuthzService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.ListWithPermissions(ctx)
	if err != nil {
		return nil, domain.Internal("list roles", err)
	}
	return roles, nil
}

// EnsureRoles 启动时补齐缺失的角色
func (s *AuthzService) EnsureRoles(ctx context.Context, names []string) error {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		r, err := s.roles.FindByName(ctx, n)
		if err != nil {
			return domain.Internal("find role", err)
		}
		if r != nil {
			continue
		}
		name := n
		if _, err := s.SaveRole(ctx, RoleForm{Name: &name}); err != nil {
			return err
		}
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "allowed"
	}
	return "denied"
}
