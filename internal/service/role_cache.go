package service

import (
	"context"
	"time"

	"go-gin-gorm-iam/internal/core/cache"
	"go-gin-gorm-iam/internal/domain"
)

// roleRef 缓存里只放注册需要的字段；domain.Role 的 ID 不参与 JSON
type roleRef struct {
	ID   uint   `json:"id"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// RoleCache 按名字查角色；c 为 nil 时直连仓储。
// AuthService 与 AuthzService 共用同一个实例，角色写入后由 AuthzService 失效。
type RoleCache struct {
	roles domain.RoleRepository
	cache *cache.Cache
	ttl   time.Duration
}

func NewRoleCache(roles domain.RoleRepository, c *cache.Cache, ttl time.Duration) *RoleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RoleCache{roles: roles, cache: c, ttl: ttl}
}

func roleNameKey(name string) string { return "role:name:" + name }

func (r *RoleCache) load(ctx context.Context, name string) (*roleRef, error) {
	role, err := r.roles.FindByName(ctx, name)
	if err != nil || role == nil {
		return nil, err
	}
	return &roleRef{ID: role.ID, UUID: role.UUID, Name: role.Name}, nil
}

func (r *RoleCache) byName(ctx context.Context, name string) (*roleRef, error) {
	if r.cache == nil {
		return r.load(ctx, name)
	}
	return cache.GetOrLoadJSON(r.cache, ctx, roleNameKey(name), r.ttl, func(ctx context.Context) (*roleRef, error) {
		return r.load(ctx, name)
	})
}

func (r *RoleCache) invalidate(ctx context.Context, names ...string) {
	if r.cache == nil {
		return
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			keys = append(keys, roleNameKey(n))
		}
	}
	_ = r.cache.Del(ctx, keys...)
}
