package service

import (
	"context"
	"time"
)

// TokenCodec 签发 / 解析 bearer token（auth.JWTer）
type TokenCodec interface {
	Issue(uid string) (string, error)
	Subject(token string) (string, error)
}

// Hasher 单向密码哈希（utils.Bcrypt）
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
}

// Locker 按 key 串行化（cache.RedisLocker / cache.LocalLocker）
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Clock func() time.Time
