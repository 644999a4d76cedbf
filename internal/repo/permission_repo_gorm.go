package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-iam/internal/domain"
)

type PermissionRepo struct{ db *gorm.DB }

func NewPermissionRepo(db *gorm.DB) *PermissionRepo { return &PermissionRepo{db: db} }

// key 在 mysql 是保留字，用 map 条件让 gorm 加引号
func (r *PermissionRepo) FindByTriple(ctx context.Context, roleID uint, key, subKey string) (*domain.Permission, error) {
	var p domain.Permission
	err := r.db.WithContext(ctx).
		Where(map[string]any{"role_id": roleID, "key": key, "sub_key": subKey}).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find permission: %w", err)
	}
	return &p, nil
}

func (r *PermissionRepo) UpdateStatus(ctx context.Context, uuid string, status bool) error {
	err := r.db.WithContext(ctx).Model(&domain.Permission{}).
		Where("uuid = ?", uuid).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update permission status: %w", err)
	}
	return nil
}

// Upsert 并发下两边同时插入同一三元组时，后到的只改 status
func (r *PermissionRepo) Upsert(ctx context.Context, p *domain.Permission) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "key"}, {Name: "sub_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

func (r *PermissionRepo) ListByRole(ctx context.Context, roleID uint) ([]domain.Permission, error) {
	var ps []domain.Permission
	err := r.db.WithContext(ctx).Where("role_id = ?", roleID).Order("id ASC").Find(&ps).Error
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return ps, nil
}
