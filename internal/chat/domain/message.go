package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// MessageType kind of message payload
type MessageType string

const (
	// MessageTypeText plain text
	MessageTypeText MessageType = "text"
	// MessageTypeImage image media
	MessageTypeImage MessageType = "image"
	// MessageTypeVideo video media
	MessageTypeVideo MessageType = "video"
	// MessageTypeFile any other attachment
	MessageTypeFile MessageType = "file"
)

// Valid type is one of the known kinds
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeFile:
		return true
	}
	return false
}

// Message one chat message
type Message struct {
	ID             string      `bson:"_id" json:"id"`
	ConversationID string      `bson:"conversation_id" json:"conversation_id"`
	SenderID       string      `bson:"sender_id" json:"sender_id"`
	ReceiverID     string      `bson:"receiver_id" json:"receiver_id"`
	Content        string      `bson:"content,omitempty" json:"content,omitempty"`
	MediaRef       string      `bson:"media_ref,omitempty" json:"media_ref,omitempty"`
	Type           MessageType `bson:"type" json:"type"`
	IsRead         bool        `bson:"is_read" json:"is_read"`
	IsDeleted      bool        `bson:"is_deleted" json:"is_deleted"`
	CreatedAt      time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at" json:"updated_at"`
}

// NewMessageID ulid ids sort lexically in creation order
func NewMessageID() string {
	return ulid.Make().String()
}

// MessageBody what a sender supplies
type MessageBody struct {
	Content  string      `json:"content,omitempty"`
	MediaRef string      `json:"media_ref,omitempty"`
	Type     MessageType `json:"type"`
}

// Normalize trim the content and default the type to text
func (b MessageBody) Normalize() MessageBody {
	b.Content = strings.TrimSpace(b.Content)
	b.MediaRef = strings.TrimSpace(b.MediaRef)
	if b.Type == "" {
		b.Type = MessageTypeText
	}
	return b
}

// Validate check the body invariants, maxRunes bounds the content length
func (b MessageBody) Validate(maxRunes int) error {
	if !b.Type.Valid() {
		return ErrInvalidMessageType
	}
	if b.Content == "" && b.MediaRef == "" {
		return ErrEmptyMessage
	}
	if b.Type != MessageTypeText && b.MediaRef == "" {
		return ErrMediaRequired
	}
	if maxRunes > 0 && utf8.RuneCountInString(b.Content) > maxRunes {
		return ErrContentTooLong
	}
	return nil
}

// MessageView message with sender and receiver identity
type MessageView struct {
	*Message
	Sender   *UserSummary `json:"sender,omitempty"`
	Receiver *UserSummary `json:"receiver,omitempty"`
}

// MessagePage newest first page of messages
type MessagePage struct {
	Items []*Message `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
