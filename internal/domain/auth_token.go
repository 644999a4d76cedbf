package domain

import (
	"context"
	"time"
)

// AuthToken 一行即一个已登录会话
type AuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	AuthID    string    `gorm:"index;size:36;not null" json:"authId"`
	Token     string    `gorm:"column:auth_token;type:text;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

type AuthTokenRepository interface {
	Create(ctx context.Context, t *AuthToken) error
	// ListByUser 按 created_at 升序（最早的在前）
	ListByUser(ctx context.Context, authID string) ([]AuthToken, error)
	DeleteByIDs(ctx context.Context, ids []uint) error
	DeleteByUserAndToken(ctx context.Context, authID, token string) (int64, error)
	Exists(ctx context.Context, authID, token string) (bool, error)
}
