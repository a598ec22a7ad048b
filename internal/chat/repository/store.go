package repository

import (
	"context"
	"errors"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// blockRetries bound on reloading after a concurrent block state change
const blockRetries = 3

// Store conversation and message store with participant rules applied
type Store struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Users         UserDirectory
	now           func() time.Time
}

// NewStore create a Store
func NewStore(convs ConversationRepository, msgs MessageRepository, users UserDirectory) *Store {
	return &Store{
		Conversations: convs,
		Messages:      msgs,
		Users:         users,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateConversation the pair's conversation, created at most once
func (s *Store) GetOrCreateConversation(ctx context.Context, userA, userB string) (*domain.Conversation, bool, error) {
	if userA == userB {
		return nil, false, domain.ErrSelfConversation
	}
	for _, id := range []string{userA, userB} {
		if _, err := s.Users.UserExists(ctx, id); err != nil {
			return nil, false, err
		}
	}
	return s.Conversations.GetOrCreate(ctx, userA, userB)
}

// AppendMessage persist the message and move the latest pointer to it
func (s *Store) AppendMessage(ctx context.Context, conversationID, senderID, receiverID string, body domain.MessageBody) (*domain.Message, error) {
	conv, err := s.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if senderID == receiverID || !conv.HasParticipant(senderID) || conv.Peer(senderID) != receiverID {
		return nil, domain.ErrWrongParticipants
	}

	now := s.now()
	msg := &domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        body.Content,
		MediaRef:       body.MediaRef,
		Type:           body.Type,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Messages.Insert(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.Conversations.AdvanceLatest(ctx, conversationID, msg.ID, now); err != nil {
		// 補償：指標更新失敗就撤回訊息
		if rmErr := s.Messages.Remove(context.WithoutCancel(ctx), msg.ID); rmErr != nil {
			logger.Log.Error("compensating message remove failed",
				zap.String("conversation_id", conversationID),
				zap.String("message_id", msg.ID),
				zap.Error(rmErr),
			)
		}
		return nil, err
	}
	return msg, nil
}

// SetBlockState block records the blocker; only the blocker may unblock
func (s *Store) SetBlockState(ctx context.Context, conversationID, actingUserID string, blocked bool) (*domain.Conversation, error) {
	for attempt := 0; attempt < blockRetries; attempt++ {
		conv, err := s.Conversations.FindByID(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if !conv.HasParticipant(actingUserID) {
			return nil, domain.ErrNotParticipant
		}

		switch {
		case blocked && conv.Blocked && !conv.IsBlockedBy(actingUserID):
			return nil, domain.ErrAlreadyBlocked
		case !blocked && !conv.Blocked:
			return nil, domain.ErrNotBlocked
		case !blocked && !conv.IsBlockedBy(actingUserID):
			return nil, domain.ErrNotBlocker
		}

		updated, err := s.Conversations.UpdateBlockState(ctx, conversationID, actingUserID, blocked, s.now())
		if errors.Is(err, ErrNotModified) {
			// 狀態在讀取後被另一方改變，重新判斷
			continue
		}
		return updated, err
	}
	return nil, ErrNotModified
}

// MarkRead flip every unread message addressed to the reader
func (s *Store) MarkRead(ctx context.Context, conversationID, readerUserID string) (*domain.Conversation, int64, error) {
	conv, err := s.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conv.HasParticipant(readerUserID) {
		return nil, 0, domain.ErrNotParticipant
	}
	n, err := s.Messages.MarkRead(ctx, conversationID, readerUserID, s.now())
	if err != nil {
		return nil, 0, err
	}
	return conv, n, nil
}

// DeleteConversation participant only; messages are kept but settled as read so unread counts drop them
func (s *Store) DeleteConversation(ctx context.Context, conversationID, requesterID string) error {
	conv, err := s.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(requesterID) {
		return domain.ErrNotParticipant
	}
	at := s.now()
	for _, userID := range conv.Participants {
		if _, err := s.Messages.MarkRead(ctx, conversationID, userID, at); err != nil {
			return err
		}
	}
	return s.Conversations.Delete(ctx, conversationID)
}

// SoftDeleteMessage sender only; the record is kept
func (s *Store) SoftDeleteMessage(ctx context.Context, messageID, requesterID string) (*domain.Message, error) {
	msg, err := s.Messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, domain.ErrNotSender
	}
	if msg.IsDeleted {
		return msg, nil
	}

	now := s.now()
	if err := s.Messages.SoftDelete(ctx, messageID, now); err != nil {
		return nil, err
	}
	msg.IsDeleted = true
	msg.UpdatedAt = now

	conv, err := s.Conversations.FindByID(ctx, msg.ConversationID)
	if errors.Is(err, domain.ErrConversationAbsent) {
		return msg, nil
	}
	if err != nil {
		return nil, err
	}
	if conv.LatestMessageID != nil && *conv.LatestMessageID == msg.ID {
		prev, err := s.Messages.LatestVisible(ctx, msg.ConversationID)
		if err != nil {
			return nil, err
		}
		var next *string
		if prev != nil {
			next = &prev.ID
		}
		if err := s.Conversations.ReplaceLatest(ctx, conv.ID, msg.ID, next, now); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
