package app

import (
	"context"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/pkg"
	"recruit_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// ConversationList page of conversation summaries
type ConversationList struct {
	Items []*domain.ConversationSummary `json:"items"`
	Total int64                         `json:"total"`
	Page  int                           `json:"page"`
	Limit int                           `json:"limit"`
}

// GetOrCreateConversation idempotent per unordered pair
func (s *MessagingService) GetOrCreateConversation(ctx context.Context, userID, otherUserID string) (*domain.Conversation, error) {
	if otherUserID == "" {
		return nil, domain.ErrMissingTarget
	}
	conv, _, err := s.store.GetOrCreateConversation(ctx, userID, otherUserID)
	return conv, err
}

// GetConversation detail with peer and latest message, participants only
func (s *MessagingService) GetConversation(ctx context.Context, conversationID, requesterID string) (*domain.ConversationSummary, error) {
	conv, err := s.participantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.summarize(ctx, requesterID, []*domain.Conversation{conv})
	if err != nil {
		return nil, err
	}
	return summaries[0], nil
}

// ListMyConversations most recently active first
func (s *MessagingService) ListMyConversations(ctx context.Context, userID string, page, limit int) (*ConversationList, error) {
	page, limit = s.pageBounds(page, limit)
	convs, total, err := s.store.Conversations.FindByParticipant(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	items, err := s.summarize(ctx, userID, convs)
	if err != nil {
		return nil, err
	}
	return &ConversationList{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListBlocked conversations the user blocked
func (s *MessagingService) ListBlocked(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	convs, err := s.store.Conversations.FindBlockedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, userID, convs)
}

// summarize attach latest message, peer summary and unread count in batch
func (s *MessagingService) summarize(ctx context.Context, userID string, convs []*domain.Conversation) ([]*domain.ConversationSummary, error) {
	ids := make([]string, 0, len(convs))
	latestIDs := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
		if c.LatestMessageID != nil {
			latestIDs = append(latestIDs, *c.LatestMessageID)
		}
	}

	latest, err := s.store.Messages.FindByIDs(ctx, latestIDs)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.Messages.CountUnreadByConversation(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]string, 0, len(convs))
	for _, c := range convs {
		peerIDs = append(peerIDs, c.Peer(userID))
	}
	peers := make(map[string]*domain.UserSummary, len(peerIDs))
	for _, peerID := range pkg.Distinct(peerIDs) {
		peer, err := s.store.Users.UserExists(ctx, peerID)
		if err != nil {
			logger.Log.Warn("peer lookup failed", zap.String("user_id", peerID), zap.Error(err))
			peer = &domain.UserSummary{ID: peerID}
		}
		peers[peerID] = peer
	}

	out := make([]*domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		sum := &domain.ConversationSummary{Conversation: c, UnreadCount: unread[c.ID], Peer: peers[c.Peer(userID)]}
		if c.LatestMessageID != nil {
			sum.LatestMessage = latest[*c.LatestMessageID]
		}
		out = append(out, sum)
	}
	return out, nil
}

// Block block the conversation as userID
func (s *MessagingService) Block(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.store.SetBlockState(ctx, conversationID, userID, true)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.ChatEvent{
		Type:           domain.EventConversationBlocked,
		ConversationID: conversationID,
		ActorID:        userID,
		OccurredAt:     conv.UpdatedAt,
	})
	return conv, nil
}

// Unblock lift the block, only the blocker may
func (s *MessagingService) Unblock(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.store.SetBlockState(ctx, conversationID, userID, false)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.ChatEvent{
		Type:           domain.EventConversationUnblocked,
		ConversationID: conversationID,
		ActorID:        userID,
		OccurredAt:     conv.UpdatedAt,
	})
	return conv, nil
}

// DeleteConversation participant-only hard delete; messages are kept
func (s *MessagingService) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	s.publish(ctx, domain.ChatEvent{
		Type:           domain.EventConversationDeleted,
		ConversationID: conversationID,
		ActorID:        userID,
		OccurredAt:     time.Now().UTC(),
	})
	return nil
}
