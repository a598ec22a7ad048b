package domain

import (
	"sort"
	"strings"
	"time"

	"recruit_chat_service/pkg"
)

// BlockPolicy decide who may still send while a conversation is blocked
type BlockPolicy string

const (
	// BlockPolicyAsymmetric the blocker may still send, the blocked party may not
	BlockPolicyAsymmetric BlockPolicy = "asymmetric"
	// BlockPolicySymmetric neither participant may send
	BlockPolicySymmetric BlockPolicy = "symmetric"
)

// ParseBlockPolicy unknown values fall back to asymmetric
func ParseBlockPolicy(s string) BlockPolicy {
	if BlockPolicy(strings.ToLower(s)) == BlockPolicySymmetric {
		return BlockPolicySymmetric
	}
	return BlockPolicyAsymmetric
}

// Conversation two-party chat record
type Conversation struct {
	ID              string    `bson:"_id" json:"id"`
	Participants    []string  `bson:"participants" json:"participants"`
	PairKey         string    `bson:"pair_key" json:"-"`
	LatestMessageID *string   `bson:"latest_message_id,omitempty" json:"latest_message_id,omitempty"`
	Blocked         bool      `bson:"blocked" json:"blocked"`
	BlockedBy       *string   `bson:"blocked_by,omitempty" json:"blocked_by,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// PairKey order-insensitive key of two user ids
func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1]
}

// NewConversation build an unblocked conversation, userA is stored first
func NewConversation(id, userA, userB string, now time.Time) *Conversation {
	return &Conversation{
		ID:           id,
		Participants: []string{userA, userB},
		PairKey:      PairKey(userA, userB),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasParticipant user is one of the two participants
func (c *Conversation) HasParticipant(userID string) bool {
	return pkg.Contains(c.Participants, userID)
}

// Peer the other participant, empty when userID is not a participant
func (c *Conversation) Peer(userID string) string {
	if len(c.Participants) != 2 {
		return ""
	}
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// IsBlockedBy conversation is blocked and userID is the blocker
func (c *Conversation) IsBlockedBy(userID string) bool {
	return c.Blocked && c.BlockedBy != nil && *c.BlockedBy == userID
}

// CanSend check the block state allows senderID to send
func (c *Conversation) CanSend(senderID string, policy BlockPolicy) bool {
	if !c.Blocked {
		return true
	}
	return policy == BlockPolicyAsymmetric && c.IsBlockedBy(senderID)
}

// UserSummary public identity of a user
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
}

// ConversationSummary conversation list entry
type ConversationSummary struct {
	Conversation  *Conversation `json:"conversation"`
	LatestMessage *Message      `json:"latest_message,omitempty"`
	Peer          *UserSummary  `json:"peer,omitempty"`
	UnreadCount   int64         `json:"unread_count"`
}
