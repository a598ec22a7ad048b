package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"recruit_chat_service/internal/chat/domain"

	"github.com/google/uuid"
)

// MemoryConversationRepository in-process ConversationRepository for local runs and tests
type MemoryConversationRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.Conversation
	byPair map[string]string
}

// NewMemoryConversationRepository create an empty in-memory conversation store
func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		byID:   make(map[string]*domain.Conversation),
		byPair: make(map[string]string),
	}
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	if c.LatestMessageID != nil {
		id := *c.LatestMessageID
		cp.LatestMessageID = &id
	}
	if c.BlockedBy != nil {
		by := *c.BlockedBy
		cp.BlockedBy = &by
	}
	return &cp
}

// GetOrCreate pair key map plays the unique index
func (s *MemoryConversationRepository) GetOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.PairKey(userA, userB)
	if id, ok := s.byPair[key]; ok {
		return cloneConversation(s.byID[id]), false, nil
	}

	conv := domain.NewConversation(uuid.NewString(), userA, userB, time.Now().UTC())
	s.byID[conv.ID] = conv
	s.byPair[key] = conv.ID
	return cloneConversation(conv), true, nil
}

// FindByID find conversation by id
func (s *MemoryConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrConversationAbsent
	}
	return cloneConversation(conv), nil
}

// FindByParticipant newest activity first
func (s *MemoryConversationRepository) FindByParticipant(ctx context.Context, userID string, page, limit int) ([]*domain.Conversation, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	var all []*domain.Conversation
	for _, c := range s.byID {
		if c.HasParticipant(userID) {
			all = append(all, cloneConversation(c))
		}
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return paginate(all, page, limit), int64(len(all)), nil
}

// FindBlockedBy conversations the user blocked
func (s *MemoryConversationRepository) FindBlockedBy(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*domain.Conversation{}
	for _, c := range s.byID {
		if c.IsBlockedBy(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateBlockState same preconditions as the mongo filter
func (s *MemoryConversationRepository) UpdateBlockState(ctx context.Context, id, actingUserID string, blocked bool, at time.Time) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, ErrNotModified
	}
	if blocked {
		if !conv.HasParticipant(actingUserID) || (conv.Blocked && !conv.IsBlockedBy(actingUserID)) {
			return nil, ErrNotModified
		}
		by := actingUserID
		conv.Blocked = true
		conv.BlockedBy = &by
	} else {
		if !conv.IsBlockedBy(actingUserID) {
			return nil, ErrNotModified
		}
		conv.Blocked = false
		conv.BlockedBy = nil
	}
	conv.UpdatedAt = at
	return cloneConversation(conv), nil
}

// AdvanceLatest move the pointer forward only
func (s *MemoryConversationRepository) AdvanceLatest(ctx context.Context, id, messageID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil
	}
	if conv.LatestMessageID == nil || *conv.LatestMessageID < messageID {
		conv.LatestMessageID = &messageID
		conv.UpdatedAt = at
	}
	return nil
}

// ReplaceLatest compare-and-set of the pointer
func (s *MemoryConversationRepository) ReplaceLatest(ctx context.Context, id string, expected string, next *string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok || conv.LatestMessageID == nil || *conv.LatestMessageID != expected {
		return nil
	}
	if next != nil {
		n := *next
		conv.LatestMessageID = &n
	} else {
		conv.LatestMessageID = nil
	}
	conv.UpdatedAt = at
	return nil
}

// Delete hard delete, messages are kept
func (s *MemoryConversationRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return domain.ErrConversationAbsent
	}
	delete(s.byPair, conv.PairKey)
	delete(s.byID, id)
	return nil
}

// MemoryMessageRepository in-process MessageRepository for local runs and tests
type MemoryMessageRepository struct {
	mu   sync.Mutex
	byID map[string]*domain.Message
}

// NewMemoryMessageRepository create an empty in-memory message store
func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{byID: make(map[string]*domain.Message)}
}

func cloneMessage(m *domain.Message) *domain.Message {
	cp := *m
	return &cp
}

// newest first snapshot filtered by keep, taken under the lock
func (s *MemoryMessageRepository) snapshot(keep func(*domain.Message) bool) []*domain.Message {
	s.mu.Lock()
	var out []*domain.Message
	for _, m := range s.byID {
		if keep(m) {
			out = append(out, cloneMessage(m))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Insert store a message
func (s *MemoryMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[msg.ID] = cloneMessage(msg)
	return nil
}

// Remove physical delete
func (s *MemoryMessageRepository) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

// FindByID find message by id, deleted ones included
func (s *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrMessageAbsent
	}
	return cloneMessage(m), nil
}

// FindByIDs batch lookup
func (s *MemoryMessageRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*domain.Message, len(ids))
	for _, id := range ids {
		if m, ok := s.byID[id]; ok {
			out[id] = cloneMessage(m)
		}
	}
	return out, nil
}

// ListVisible non-deleted newest first
func (s *MemoryMessageRepository) ListVisible(ctx context.Context, conversationID string, page, limit int) ([]*domain.Message, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	all := s.snapshot(func(m *domain.Message) bool {
		return m.ConversationID == conversationID && !m.IsDeleted
	})
	return paginate(all, page, limit), int64(len(all)), nil
}

// Search case-insensitive substring over visible content
func (s *MemoryMessageRepository) Search(ctx context.Context, conversationID, term string, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(term)
	out := s.snapshot(func(m *domain.Message) bool {
		return m.ConversationID == conversationID && !m.IsDeleted &&
			strings.Contains(strings.ToLower(m.Content), needle)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead flip unread messages addressed to readerID
func (s *MemoryMessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.byID {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			m.UpdatedAt = at
			n++
		}
	}
	return n, nil
}

// SoftDelete set is_deleted, the record stays
func (s *MemoryMessageRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.byID[id]; ok && !m.IsDeleted {
		m.IsDeleted = true
		m.UpdatedAt = at
	}
	return nil
}

// LatestVisible newest non-deleted message, nil when none
func (s *MemoryMessageRepository) LatestVisible(ctx context.Context, conversationID string) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := s.snapshot(func(m *domain.Message) bool {
		return m.ConversationID == conversationID && !m.IsDeleted
	})
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

// CountUnread unread and not deleted messages addressed to userID
func (s *MemoryMessageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, m := range s.byID {
		if m.ReceiverID == userID && !m.IsRead && !m.IsDeleted {
			n++
		}
	}
	return n, nil
}

// CountUnreadByConversation unread count per conversation
func (s *MemoryMessageRepository) CountUnreadByConversation(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(conversationIDs))
	for _, id := range conversationIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(conversationIDs))
	for _, m := range s.byID {
		if wanted[m.ConversationID] && m.ReceiverID == userID && !m.IsRead && !m.IsDeleted {
			out[m.ConversationID]++
		}
	}
	return out, nil
}

func paginate[T any](all []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(all) || start < 0 {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// NewMemoryStore store over the in-memory repositories, for tests and runs without mongo
func NewMemoryStore(users UserDirectory) *Store {
	return NewStore(NewMemoryConversationRepository(), NewMemoryMessageRepository(), users)
}
