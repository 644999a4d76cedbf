package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go-gin-gorm-iam/internal/domain"
)

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

func (r *RoleRepo) Create(ctx context.Context, role *domain.Role) error {
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

func (r *RoleRepo) first(ctx context.Context, query string, arg any) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Where(query, arg).Order("id ASC").First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

func (r *RoleRepo) FindByUUID(ctx context.Context, uuid string) (*domain.Role, error) {
	if uuid == "" {
		return nil, nil
	}
	return r.first(ctx, "uuid = ?", uuid)
}

// FindByName 同名取最早创建的
func (r *RoleRepo) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	if name == "" {
		return nil, nil
	}
	return r.first(ctx, "name = ?", name)
}

func (r *RoleRepo) Update(ctx context.Context, uuid string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.Role{}).Where("uuid = ?", uuid).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (r *RoleRepo) ListWithPermissions(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Order("id ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
