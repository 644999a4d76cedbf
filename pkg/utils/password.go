package utils

import "golang.org/x/crypto/bcrypt"

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword 空 hash（免密注册用户）永远不匹配
func CheckPassword(pw, hashed string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

// Bcrypt 实现 service.Hasher
type Bcrypt struct{}

func (Bcrypt) Hash(pw string) (string, error) { return HashPassword(pw) }
func (Bcrypt) Verify(pw, hashed string) bool  { return CheckPassword(pw, hashed) }
