package domain

import (
	"context"
	"time"
)

type Role struct {
	ID           uint         `gorm:"primaryKey" json:"-"`
	UUID         string       `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name         string       `gorm:"index;size:191;not null" json:"name"`
	EditableName *string      `gorm:"type:text" json:"editableName,omitempty"`
	Description  *string      `gorm:"type:text" json:"description,omitempty"`
	Permissions  []Permission `gorm:"foreignKey:RoleID" json:"permissions,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (Role) TableName() string { return "roles" }

type RoleRepository interface {
	Create(ctx context.Context, r *Role) error
	FindByUUID(ctx context.Context, uuid string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Update(ctx context.Context, uuid string, fields map[string]any) error
	ListWithPermissions(ctx context.Context) ([]Role, error)
}
