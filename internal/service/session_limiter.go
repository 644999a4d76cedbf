package service

import (
	"context"

	"go.uber.org/zap"

	"go-gin-gorm-iam/internal/domain"
)

const DefaultMaxActiveSessions = 4

// SessionLimiter 登录成功后登记会话并限制每个用户的并发会话数。
// 超限时保留最早的一条、删除其余，再插入新会话：第 N+1 次登录后剩下
// "最早 + 最新" 两条。这是既有线上行为，调用方依赖它，不要改成保留最近 N 条。
type SessionLimiter struct {
	tokens    domain.AuthTokenRepository
	locker    Locker
	log       *zap.Logger
	enabled   bool
	maxActive int
}

func NewSessionLimiter(tokens domain.AuthTokenRepository, locker Locker, log *zap.Logger, enabled bool, maxActive int) *SessionLimiter {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveSessions
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionLimiter{tokens: tokens, locker: locker, log: log, enabled: enabled, maxActive: maxActive}
}

func (l *SessionLimiter) Enabled() bool { return l.enabled }

func (l *SessionLimiter) Register(ctx context.Context, userUUID, token string) error {
	if !l.enabled {
		return nil
	}
	if l.locker != nil {
		unlock, err := l.locker.Lock(ctx, "session:"+userUUID)
		if err != nil {
			return domain.Internal("lock sessions", err)
		}
		defer unlock()
	}

	existing, err := l.tokens.ListByUser(ctx, userUUID)
	if err != nil {
		return domain.Internal("list sessions", err)
	}
	if len(existing) >= l.maxActive {
		ids := make([]uint, 0, len(existing)-1)
		for _, t := range existing[1:] {
			ids = append(ids, t.ID)
		}
		if err := l.tokens.DeleteByIDs(ctx, ids); err != nil {
			return domain.Internal("evict sessions", err)
		}
		sessionEvictions.Add(float64(len(ids)))
		l.log.Info("sessions evicted",
			zap.String("user_uuid", userUUID),
			zap.Int("evicted", len(ids)),
			zap.Int("max_active", l.maxActive),
		)
	}

	if err := l.tokens.Create(ctx, &domain.AuthToken{AuthID: userUUID, Token: token}); err != nil {
		return domain.Internal("create session", err)
	}
	return nil
}

// Active 关闭限制时所有合法 token 都视为有效
func (l *SessionLimiter) Active(ctx context.Context, userUUID, token string) (bool, error) {
	if !l.enabled {
		return true, nil
	}
	ok, err := l.tokens.Exists(ctx, userUUID, token)
	if err != nil {
		return false, domain.Internal("check session", err)
	}
	return ok, nil
}

// Revoke 删除 (user, token) 对应的单个会话，不存在也算成功
func (l *SessionLimiter) Revoke(ctx context.Context, userUUID, token string) error {
	if _, err := l.tokens.DeleteByUserAndToken(ctx, userUUID, token); err != nil {
		return domain.Internal("delete session", err)
	}
	return nil
}
