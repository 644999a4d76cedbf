package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var ten = big.NewInt(10)

// GenerateOTP 生成 n 位数字验证码（允许前导 0）
func GenerateOTP(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("otp length must be positive")
	}
	b := make([]byte, n)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + d.Int64())
	}
	return string(b), nil
}
