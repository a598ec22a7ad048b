package app

import (
	"context"
	"strings"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/metrics"
	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/pkg/config"
	errprocess "recruit_chat_service/pkg/err"
	"recruit_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const defaultPageSize = 20

// MessagingService 所有傳輸層共用的訊息業務規則
type MessagingService struct {
	store       *repository.Store
	media       repository.MediaRepository
	events      repository.EventPublisher
	policy      domain.BlockPolicy
	maxContent  int
	searchLimit int
	maxPageSize int
	metrics     *metrics.Metrics
}

// NewMessagingService init messaging service, media may be nil
func NewMessagingService(
	store *repository.Store,
	media repository.MediaRepository,
	events repository.EventPublisher,
	cfg config.MessagingConfig,
	m *metrics.Metrics,
) *MessagingService {
	if events == nil {
		events = repository.NewNopEventPublisher()
	}
	return &MessagingService{
		store:       store,
		media:       media,
		events:      events,
		policy:      domain.ParseBlockPolicy(cfg.BlockPolicy),
		maxContent:  cfg.MaxContentSize,
		searchLimit: cfg.SearchLimit,
		maxPageSize: cfg.MaxPageSize,
		metrics:     m,
	}
}

// Policy block policy in force
func (s *MessagingService) Policy() domain.BlockPolicy {
	return s.policy
}

// SendMessageInput target and body of a send, conversation id wins over receiver id
type SendMessageInput struct {
	ConversationID string
	ReceiverID     string
	Body           domain.MessageBody
}

// SendResult persisted message and the conversation it moved
type SendResult struct {
	Message      *domain.MessageView
	Conversation *domain.Conversation
}

// SendMessage validate, resolve the conversation, check the block state and persist
func (s *MessagingService) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*SendResult, error) {
	body := in.Body.Normalize()
	if err := body.Validate(s.maxContent); err != nil {
		return nil, err
	}

	conv, receiverID, err := s.resolveTarget(ctx, senderID, in)
	if err != nil {
		return nil, err
	}

	if !conv.CanSend(senderID, s.policy) {
		return nil, domain.ErrSendBlocked
	}

	if body.MediaRef != "" && s.media != nil {
		if err := s.media.Exists(ctx, body.MediaRef); err != nil {
			return nil, err
		}
	}

	msg, err := s.store.AppendMessage(ctx, conv.ID, senderID, receiverID, body)
	if err != nil {
		return nil, err
	}
	s.metrics.MessageSent()

	conv.LatestMessageID = &msg.ID
	conv.UpdatedAt = msg.CreatedAt

	s.publish(ctx, domain.ChatEvent{
		Type:           domain.EventMessageSent,
		ConversationID: conv.ID,
		ActorID:        senderID,
		MessageID:      msg.ID,
		OccurredAt:     msg.CreatedAt,
	})

	return &SendResult{
		Message:      s.enrich(ctx, msg),
		Conversation: conv,
	}, nil
}

func (s *MessagingService) resolveTarget(ctx context.Context, senderID string, in SendMessageInput) (*domain.Conversation, string, error) {
	switch {
	case in.ConversationID != "":
		conv, err := s.store.Conversations.FindByID(ctx, in.ConversationID)
		if err != nil {
			return nil, "", err
		}
		if !conv.HasParticipant(senderID) {
			return nil, "", domain.ErrNotParticipant
		}
		peer := conv.Peer(senderID)
		if in.ReceiverID != "" && in.ReceiverID != peer {
			return nil, "", domain.ErrWrongParticipants
		}
		return conv, peer, nil

	case in.ReceiverID != "":
		conv, _, err := s.store.GetOrCreateConversation(ctx, senderID, in.ReceiverID)
		if err != nil {
			return nil, "", err
		}
		return conv, in.ReceiverID, nil
	}
	return nil, "", domain.ErrMissingTarget
}

// enrich attach sender and receiver summaries; lookup failures leave them empty
func (s *MessagingService) enrich(ctx context.Context, msg *domain.Message) *domain.MessageView {
	view := &domain.MessageView{Message: msg}
	if u, err := s.store.Users.UserExists(ctx, msg.SenderID); err == nil {
		view.Sender = u
	} else {
		logger.Log.Warn("sender lookup failed", zap.String("user_id", msg.SenderID), zap.Error(err))
	}
	if u, err := s.store.Users.UserExists(ctx, msg.ReceiverID); err == nil {
		view.Receiver = u
	} else {
		logger.Log.Warn("receiver lookup failed", zap.String("user_id", msg.ReceiverID), zap.Error(err))
	}
	return view
}

// participantConversation load the conversation and require membership
func (s *MessagingService) participantConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.store.Conversations.FindByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

func (s *MessagingService) pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if s.maxPageSize > 0 && limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	return page, limit
}

// ListMessages newest first page of non-deleted messages
func (s *MessagingService) ListMessages(ctx context.Context, conversationID, requesterID string, page, limit int) (*domain.MessagePage, error) {
	if _, err := s.participantConversation(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	page, limit = s.pageBounds(page, limit)
	items, total, err := s.store.Messages.ListVisible(ctx, conversationID, page, limit)
	if err != nil {
		return nil, err
	}
	return &domain.MessagePage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// SearchMessages case-insensitive substring match over visible content, no paging
func (s *MessagingService) SearchMessages(ctx context.Context, conversationID, requesterID, term string) ([]*domain.Message, error) {
	if _, err := s.participantConversation(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errprocess.Validation("searchTerm is required")
	}
	found, err := s.store.Messages.Search(ctx, conversationID, term, s.searchLimit)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []*domain.Message{}
	}
	return found, nil
}

// GetUnreadCount unread, not deleted messages addressed to the user
func (s *MessagingService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.Messages.CountUnread(ctx, userID)
}

// MarkReadResult conversation read and how many messages flipped
type MarkReadResult struct {
	Conversation *domain.Conversation
	Count        int64
}

// MarkRead mark every message addressed to the reader as read
func (s *MessagingService) MarkRead(ctx context.Context, conversationID, readerID string) (*MarkReadResult, error) {
	conv, n, err := s.store.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.publish(ctx, domain.ChatEvent{
			Type:           domain.EventMessagesRead,
			ConversationID: conversationID,
			ActorID:        readerID,
			Count:          n,
			OccurredAt:     time.Now().UTC(),
		})
	}
	return &MarkReadResult{Conversation: conv, Count: n}, nil
}

// DeleteMessage soft delete by the sender
func (s *MessagingService) DeleteMessage(ctx context.Context, messageID, requesterID string) (*domain.Message, error) {
	msg, err := s.store.SoftDeleteMessage(ctx, messageID, requesterID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.ChatEvent{
		Type:           domain.EventMessageDeleted,
		ConversationID: msg.ConversationID,
		ActorID:        requesterID,
		MessageID:      msg.ID,
		OccurredAt:     msg.UpdatedAt,
	})
	return msg, nil
}

// MediaURL short-lived download link for a message's media
func (s *MessagingService) MediaURL(ctx context.Context, messageID, requesterID string) (string, error) {
	msg, err := s.store.Messages.FindByID(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.SenderID != requesterID && msg.ReceiverID != requesterID {
		return "", domain.ErrNotParticipant
	}
	if msg.IsDeleted || msg.MediaRef == "" || s.media == nil {
		return "", domain.ErrMessageAbsent
	}
	return s.media.PresignedURL(ctx, msg.MediaRef)
}

// TypingTarget peer to notify of typing, empty when the indicator should be dropped
func (s *MessagingService) TypingTarget(ctx context.Context, conversationID, senderID, receiverID string) (string, error) {
	if conversationID == "" {
		return "", domain.ErrMissingTarget
	}
	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return "", err
	}
	peer := conv.Peer(senderID)
	if receiverID != "" && receiverID != peer {
		return "", domain.ErrWrongParticipants
	}
	if conv.Blocked {
		return "", nil
	}
	return peer, nil
}

// publish domain events are best effort
func (s *MessagingService) publish(ctx context.Context, event domain.ChatEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Log.Warn("chat event publish failed",
			zap.String("type", string(event.Type)),
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err),
		)
	}
}
