package domain

import (
	"context"
	"time"
)

const (
	UserStatusActive  = "active"
	UserStatusDeleted = "deleted"
)

type User struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	UUID              string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	FirstName         string     `gorm:"size:191" json:"firstName"`
	LastName          string     `gorm:"size:191" json:"lastName"`
	Email             string     `gorm:"index;size:191" json:"email"`
	Phone             string     `gorm:"index;size:32" json:"phone"`
	PasswordHash      string     `gorm:"column:password;size:191" json:"-"`
	PasswordCreatedAt *time.Time `json:"-"`
	EmailVerifiedAt   *time.Time `json:"emailVerifiedAt"`
	PhoneVerifiedAt   *time.Time `json:"phoneVerifiedAt"`
	Status            string     `gorm:"size:16;not null;default:active" json:"status"`
	OTP               string     `gorm:"column:otp;size:32" json:"-"`
	OTPExpiresAt      *time.Time `gorm:"column:otp_expires_at" json:"-"`
	RoleID            *uint      `gorm:"index" json:"-"`
	Role              *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	SSOID             string     `gorm:"column:sso_id;size:191" json:"-"`

	// 资料/地区
	State           string `gorm:"size:100" json:"state,omitempty"`
	Country         string `gorm:"size:100" json:"country,omitempty"`
	DefaultCurrency string `gorm:"size:10" json:"defaultCurrency,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// EmailVerified / HasPassword 供注册冲突判断
func (u *User) EmailVerified() bool { return u.EmailVerifiedAt != nil }
func (u *User) HasPassword() bool   { return u.PasswordHash != "" }

type UserListQuery struct {
	Offset int
	Limit  int
	Q      string // email/name 模糊
	Status string
}

// UserRepository 查不到时返回 (nil, nil)
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByUUID(ctx context.Context, uuid string) (*User, error)
	FindByUUIDWithRole(ctx context.Context, uuid string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	FindCredentials(ctx context.Context, column, value string) (*User, error)
	Update(ctx context.Context, uuid string, fields map[string]any) error
	List(ctx context.Context, q UserListQuery) ([]User, int64, error)
}
