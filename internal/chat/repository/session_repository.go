package repository

import (
	"context"
	"errors"
	"time"

	"recruit_chat_service/pkg/database"
)

// MemberSession session written by the member service at login
type MemberSession struct {
	Token        string    `json:"Token"`
	MemberID     string    `json:"MemberID"`
	CreatedAt    time.Time `json:"CreatedAt"`
	LastActivity time.Time `json:"LastActivity"`
	ExpiredAt    time.Time `json:"ExpiredAt"`
}

// IsExpired 檢查 Session 是否已過期
func (s *MemberSession) IsExpired() bool {
	return time.Now().After(s.ExpiredAt)
}

// errSessionMismatch token no longer matches the live session
var errSessionMismatch = errors.New("session token mismatch")

// SessionRepository definition member sessions in redis
type SessionRepository interface {
	CreateSession(ctx context.Context, memberID, token string) error
	ValidateSession(ctx context.Context, memberID, token string) error
}

type sessionRepository struct {
	redis database.RedisRepository[MemberSession]
	ttl   time.Duration
}

// NewSessionRepository create a SessionRepository
func NewSessionRepository(redis database.RedisRepository[MemberSession], ttl time.Duration) SessionRepository {
	return &sessionRepository{redis: redis, ttl: ttl}
}

func (r *sessionRepository) CreateSession(ctx context.Context, memberID, token string) error {
	now := time.Now()
	return r.redis.Set(ctx, memberID, MemberSession{
		Token:        token,
		MemberID:     memberID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiredAt:    now.Add(r.ttl),
	}, r.ttl)
}

// ValidateSession session exists, carries this token and is not expired; extends the TTL
func (r *sessionRepository) ValidateSession(ctx context.Context, memberID, token string) error {
	session, err := r.redis.Get(ctx, memberID)
	if err != nil {
		return err
	}
	if session.Token != token || session.IsExpired() {
		return errSessionMismatch
	}
	return r.redis.ExtendTTL(ctx, memberID, r.ttl)
}
