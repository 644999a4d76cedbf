package domain

import (
	"context"
	"time"
)

const (
	SubKeyRead   = "read"
	SubKeyWrite  = "write"
	SubKeyDelete = "delete"
)

// SubKeys 固定顺序：read / write / delete
var SubKeys = []string{SubKeyRead, SubKeyWrite, SubKeyDelete}

// Permission 一个资源 key 对应三行（每个 sub_key 一行）
type Permission struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UUID      string    `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	RoleID    uint      `gorm:"not null;uniqueIndex:idx_permissions_role_key_sub,priority:1" json:"-"`
	Key       string    `gorm:"size:191;not null;uniqueIndex:idx_permissions_role_key_sub,priority:2" json:"key"`
	SubKey    string    `gorm:"size:16;not null;uniqueIndex:idx_permissions_role_key_sub,priority:3" json:"subKey"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Status    bool      `gorm:"not null;default:false" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Permission) TableName() string { return "permissions" }

type PermissionRepository interface {
	FindByTriple(ctx context.Context, roleID uint, key, subKey string) (*Permission, error)
	UpdateStatus(ctx context.Context, uuid string, status bool) error
	// Upsert 在 (role_id, key, sub_key) 唯一冲突时只更新 status
	Upsert(ctx context.Context, p *Permission) error
	ListByRole(ctx context.Context, roleID uint) ([]Permission, error)
}
