package service

import (
	"strings"
	"time"

	"go-gin-gorm-iam/internal/domain"
	"go-gin-gorm-iam/pkg/utils"
)

const (
	DefaultOTPLength = 6
	// 30 天：既是 OTP 有效期，也是注册后待验证窗口
	DefaultOTPTTL = 30 * 24 * time.Hour
)

type OTPManager struct {
	Length  int
	TTL     time.Duration
	Pending time.Duration
	Now     Clock
	Gen     func(n int) (string, error)
}

func NewOTPManager(length int, ttl, pending time.Duration) *OTPManager {
	if length <= 0 {
		length = DefaultOTPLength
	}
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if pending <= 0 {
		pending = DefaultOTPTTL
	}
	return &OTPManager{Length: length, TTL: ttl, Pending: pending, Now: time.Now, Gen: utils.GenerateOTP}
}

// Issue 新验证码及其过期时间
func (m *OTPManager) Issue() (string, time.Time, error) {
	code, err := m.Gen(m.Length)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, m.Now().Add(m.TTL), nil
}

// PendingExpiry 注册后等待验证的截止时间
func (m *OTPManager) PendingExpiry() time.Time { return m.Now().Add(m.Pending) }

// Check 先判过期再比对；未存过 OTP 的用户一律 InvalidOTP
func (m *OTPManager) Check(u *domain.User, supplied string) error {
	if u.OTPExpiresAt != nil && u.OTPExpiresAt.Before(m.Now()) {
		return domain.Expired("otp expired")
	}
	code := strings.TrimSpace(supplied)
	if code == "" || u.OTP == "" || code != u.OTP {
		return domain.InvalidOTP("incorrect otp")
	}
	return nil
}
