package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-gin-gorm-iam/internal/domain"
)

// 登录时只取这些列，otp 等敏感字段不出仓储
var credentialColumns = []string{
	"id", "uuid", "first_name", "last_name", "email", "phone", "password", "sso_id", "status",
}

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) first(ctx context.Context, q *gorm.DB, query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := q.WithContext(ctx).Where(query, args...).Order("id ASC").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) FindByUUID(ctx context.Context, uuid string) (*domain.User, error) {
	if uuid == "" {
		return nil, nil
	}
	return r.first(ctx, r.db, "uuid = ?", uuid)
}

// FindByUUIDWithRole 预加载 Role 及其 Permissions（按 id 排序）
func (r *UserRepo) FindByUUIDWithRole(ctx context.Context, uuid string) (*domain.User, error) {
	if uuid == "" {
		return nil, nil
	}
	q := r.db.Preload("Role").Preload("Role.Permissions", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
	return r.first(ctx, q, "uuid = ?", uuid)
}

// 已删除用户的 email/phone 被清空，空值查询直接视为不存在
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, nil
	}
	return r.first(ctx, r.db, "email = ?", email)
}

func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if phone == "" {
		return nil, nil
	}
	return r.first(ctx, r.db, "phone = ?", phone)
}

// FindCredentials column 只允许 email / phone
func (r *UserRepo) FindCredentials(ctx context.Context, column, value string) (*domain.User, error) {
	if column != "email" && column != "phone" {
		return nil, fmt.Errorf("find credentials: unsupported column %q", column)
	}
	if value == "" {
		return nil, nil
	}
	return r.first(ctx, r.db.Select(credentialColumns), column+" = ?", value)
}

func (r *UserRepo) Update(ctx context.Context, uuid string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("uuid = ?", uuid).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, in domain.UserListQuery) ([]domain.User, int64, error) {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	q := r.db.WithContext(ctx).Model(&domain.User{})
	if s := strings.TrimSpace(in.Q); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []domain.User
	if err := q.Preload("Role").Order("created_at DESC, id DESC").Offset(in.Offset).Limit(in.Limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}
