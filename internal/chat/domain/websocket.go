package domain

import errprocess "recruit_chat_service/pkg/err"

// Action websocket event name
type Action string

// inbound actions
const (
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// MarkMessagesRead websocket action mark_messages_read
	MarkMessagesRead Action = "mark_messages_read"
	// TypingStart websocket action typing_start
	TypingStart Action = "typing_start"
	// TypingStop websocket action typing_stop
	TypingStop Action = "typing_stop"
	// BlockUser websocket action block_user
	BlockUser Action = "block_user"
	// UnblockUser websocket action unblock_user
	UnblockUser Action = "unblock_user"
)

// outbound pushes
const (
	// Connected sent once the connection is active
	Connected Action = "connected"
	// NewMessage pushed to every connection of the receiver
	NewMessage Action = "new_message"
	// ConversationUpdated pushed to both participants after a send
	ConversationUpdated Action = "conversation_updated"
	// MessagesReadByPeer pushed to the sender side after mark read
	MessagesReadByPeer Action = "messages_read_by_peer"
	// YouWereBlocked pushed to the blocked participant
	YouWereBlocked Action = "you_were_blocked"
	// YouWereUnblocked pushed to the unblocked participant
	YouWereUnblocked Action = "you_were_unblocked"
	// PeerOnline a user became reachable
	PeerOnline Action = "peer_online"
	// PeerOffline a user closed its last connection
	PeerOffline Action = "peer_offline"
	// ErrorEvent failure not tied to a known action
	ErrorEvent Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action         Action      `json:"action"`
	RequestID      string      `json:"request_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	ReceiverID     string      `json:"receiver_id,omitempty"`
	Content        string      `json:"content,omitempty"`
	MediaRef       string      `json:"media_ref,omitempty"`
	MessageType    MessageType `json:"message_type,omitempty"`
}

// Body message body carried by a send_message request
func (r WSRequest) Body() MessageBody {
	return MessageBody{Content: r.Content, MediaRef: r.MediaRef, Type: r.MessageType}
}

// WSError error part of a websocket response
type WSError struct {
	Code    errprocess.Code `json:"code"`
	Message string          `json:"message"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action    Action                 `json:"action"`
	RequestID string                 `json:"request_id,omitempty"`
	Success   bool                   `json:"success"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Error     *WSError               `json:"error,omitempty"`
}

// Push build an unsolicited server event
func Push(action Action, payload map[string]interface{}) WSResponse {
	return WSResponse{Action: action, Success: true, Payload: payload}
}

// Fail build an error response, internal details never leave the server
func Fail(action Action, requestID string, err error) WSResponse {
	return WSResponse{
		Action:    action,
		RequestID: requestID,
		Error: &WSError{
			Code:    errprocess.CodeOf(err),
			Message: errprocess.Public(err),
		},
	}
}

// Ack build the success reply to an inbound request
func Ack(action Action, requestID string, payload map[string]interface{}) WSResponse {
	return WSResponse{Action: action, RequestID: requestID, Success: true, Payload: payload}
}
