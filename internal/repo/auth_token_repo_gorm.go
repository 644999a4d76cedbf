package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"go-gin-gorm-iam/internal/domain"
)

type AuthTokenRepo struct{ db *gorm.DB }

func NewAuthTokenRepo(db *gorm.DB) *AuthTokenRepo { return &AuthTokenRepo{db: db} }

func (r *AuthTokenRepo) Create(ctx context.Context, t *domain.AuthToken) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("create auth token: %w", err)
	}
	return nil
}

func (r *AuthTokenRepo) ListByUser(ctx context.Context, authID string) ([]domain.AuthToken, error) {
	var ts []domain.AuthToken
	err := r.db.WithContext(ctx).
		Where("auth_id = ?", authID).
		Order("created_at ASC, id ASC").
		Find(&ts).Error
	if err != nil {
		return nil, fmt.Errorf("list auth tokens: %w", err)
	}
	return ts, nil
}

func (r *AuthTokenRepo) DeleteByIDs(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.AuthToken{}).Error; err != nil {
		return fmt.Errorf("delete auth tokens: %w", err)
	}
	return nil
}

// DeleteByUserAndToken 只删当前 token 对应的那一行
func (r *AuthTokenRepo) DeleteByUserAndToken(ctx context.Context, authID, token string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("auth_id = ? AND auth_token = ?", authID, token).
		Delete(&domain.AuthToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete auth token: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *AuthTokenRepo) Exists(ctx context.Context, authID, token string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.AuthToken{}).
		Where("auth_id = ? AND auth_token = ?", authID, token).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("count auth tokens: %w", err)
	}
	return n > 0, nil
}
