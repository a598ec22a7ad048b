package domain

import "time"

// EventType kind of chat domain event
type EventType string

const (
	// EventMessageSent a message was persisted
	EventMessageSent EventType = "message.sent"
	// EventMessagesRead a receiver read a conversation
	EventMessagesRead EventType = "messages.read"
	// EventMessageDeleted a sender soft deleted a message
	EventMessageDeleted EventType = "message.deleted"
	// EventConversationBlocked a participant blocked the conversation
	EventConversationBlocked EventType = "conversation.blocked"
	// EventConversationUnblocked the blocker lifted the block
	EventConversationUnblocked EventType = "conversation.unblocked"
	// EventConversationDeleted a participant deleted the conversation
	EventConversationDeleted EventType = "conversation.deleted"
)

// ChatEvent fact published after a state change
type ChatEvent struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id"`
	MessageID      string    `json:"message_id,omitempty"`
	Count          int64     `json:"count,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// OfflineNotification job for a receiver holding no connection
type OfflineNotification struct {
	UserID         string    `json:"user_id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	SenderID       string    `json:"sender_id"`
	Preview        string    `json:"preview,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
