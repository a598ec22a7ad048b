package domain

import errprocess "recruit_chat_service/pkg/err"

// messaging rule violations
var (
	ErrSelfConversation   = errprocess.Conflict("cannot start a conversation with yourself")
	ErrUserNotFound       = errprocess.NotFound("user not found")
	ErrConversationAbsent = errprocess.NotFound("conversation not found")
	ErrMessageAbsent      = errprocess.NotFound("message not found")
	ErrNotParticipant     = errprocess.Forbidden("not a participant of this conversation")
	ErrWrongParticipants  = errprocess.Forbidden("sender and receiver must be the conversation participants")
	ErrSendBlocked        = errprocess.Forbidden("conversation is blocked")
	ErrNotBlocker         = errprocess.Forbidden("only the blocker may unblock")
	ErrNotSender          = errprocess.Forbidden("only the sender may delete a message")
	ErrAlreadyBlocked     = errprocess.Conflict("conversation already blocked by the other participant")
	ErrNotBlocked         = errprocess.Conflict("conversation is not blocked")
	ErrEmptyMessage       = errprocess.Validation("content or media is required")
	ErrMediaRequired      = errprocess.Validation("media reference is required for non-text messages")
	ErrContentTooLong     = errprocess.Validation("content is too long")
	ErrInvalidMessageType = errprocess.Validation("unknown message type")
	ErrMissingTarget      = errprocess.Validation("conversation_id or receiver_id is required")
	ErrMediaNotFound      = errprocess.Validation("media reference does not exist")
)
