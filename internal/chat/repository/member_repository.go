package repository

import (
	"context"
	"errors"
	"sync"

	"recruit_chat_service/internal/chat/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UserDirectory definition user lookup owned by the member service
type UserDirectory interface {
	// UserExists domain.ErrUserNotFound when the id is unknown
	UserExists(ctx context.Context, id string) (*domain.UserSummary, error)
}

type memberDirectory struct {
	db *pgxpool.Pool
}

// NewMemberDirectory create a UserDirectory over the member table
func NewMemberDirectory(db *pgxpool.Pool) UserDirectory {
	return &memberDirectory{db: db}
}

func (r *memberDirectory) UserExists(ctx context.Context, id string) (*domain.UserSummary, error) {
	row := r.db.QueryRow(ctx,
		"SELECT member_id, COALESCE(display_name, ''), COALESCE(avatar_ref, '') FROM member WHERE member_id = $1 AND status <> 3",
		id)

	var user domain.UserSummary
	err := row.Scan(&user.ID, &user.DisplayName, &user.AvatarRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// MemoryUserDirectory fixed set of users
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.UserSummary
}

// NewMemoryUserDirectory create a directory holding users
func NewMemoryUserDirectory(users ...domain.UserSummary) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[string]domain.UserSummary, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// Add register a user
func (d *MemoryUserDirectory) Add(u domain.UserSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// UserExists lookup by id
func (d *MemoryUserDirectory) UserExists(ctx context.Context, id string) (*domain.UserSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}
