package app

import (
	"recruit_chat_service/internal/chat/domain"
	errprocess "recruit_chat_service/pkg/err"
	"recruit_chat_service/pkg/logger"
	"recruit_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler 处理聊天相关的 HTTP 请求
type ChatHandler struct {
	service *MessagingService
}

// NewChatHandler create ChatHandler
func NewChatHandler(service *MessagingService) *ChatHandler {
	return &ChatHandler{service: service}
}

// ErrorBody REST error envelope
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail code and public message
type ErrorDetail struct {
	Code    errprocess.Code `json:"code"`
	Message string          `json:"message"`
}

// CreateOrGetRequest body of POST /chats:create-or-get
type CreateOrGetRequest struct {
	OtherUserID string `json:"otherUserId"`
}

// SendMessageRequest body of POST /messages:send
type SendMessageRequest struct {
	ConversationID string             `json:"conversationId"`
	ReceiverID     string             `json:"receiverId"`
	Content        string             `json:"content"`
	MediaURL       string             `json:"mediaUrl"`
	MessageType    domain.MessageType `json:"messageType"`
}

// CountResponse {count}
type CountResponse struct {
	Count int64 `json:"count"`
}

func (h *ChatHandler) respondError(c *fiber.Ctx, err error) error {
	code := errprocess.CodeOf(err)
	h.service.metrics.Failure(string(code))

	if code == errprocess.CodeInternal {
		logger.Log.Error("rest err",
			zap.String("route", c.Route().Path),
			zap.String("method", c.Method()),
			zap.String("user_id", middlewares.MemberID(c)),
			zap.String("conversation_id", c.Params("id", c.Params("chatId"))),
			zap.Error(err),
		)
	}

	return c.Status(errprocess.HTTPStatus(code)).JSON(ErrorBody{
		Error: ErrorDetail{Code: code, Message: errprocess.Public(err)},
	})
}

// CreateOrGetConversation 取得或建立雙人聊天室
// @Summary Get or create a conversation
// @Tags Chats
// @Accept json
// @Produce json
// @Param request body CreateOrGetRequest true "other participant"
// @Success 200 {object} domain.Conversation
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Router /chats:create-or-get [post]
func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	var req CreateOrGetRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respondError(c, errprocess.Validation("invalid request body"))
	}

	conv, err := h.service.GetOrCreateConversation(c.UserContext(), middlewares.MemberID(c), req.OtherUserID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(conv)
}

// ListMyConversations 我的聊天室, 最近活動在前
// @Summary List my conversations
// @Tags Chats
// @Produce json
// @Param page query int false "page"
// @Param limit query int false "limit"
// @Success 200 {object} ConversationList
// @Router /chats/mine [get]
func (h *ChatHandler) ListMyConversations(c *fiber.Ctx) error {
	list, err := h.service.ListMyConversations(c.UserContext(), middlewares.MemberID(c), c.QueryInt("page", 1), c.QueryInt("limit", defaultPageSize))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(list)
}

// ListBlocked 我封鎖的聊天室
// @Summary List conversations I blocked
// @Tags Chats
// @Produce json
// @Success 200 {array} domain.ConversationSummary
// @Router /chats/blocked [get]
func (h *ChatHandler) ListBlocked(c *fiber.Ctx) error {
	items, err := h.service.ListBlocked(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

// GetConversation 聊天室明細
// @Summary Conversation detail
// @Tags Chats
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.ConversationSummary
// @Failure 403 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /chats/{id} [get]
func (h *ChatHandler) GetConversation(c *fiber.Ctx) error {
	sum, err := h.service.GetConversation(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(sum)
}

// BlockConversation 封鎖
// @Summary Block a conversation
// @Tags Chats
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.Conversation
// @Failure 403 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Router /chats/{id}/block [post]
func (h *ChatHandler) BlockConversation(c *fiber.Ctx) error {
	conv, err := h.service.Block(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(conv)
}

// UnblockConversation 解除封鎖, 只有封鎖者可以
// @Summary Unblock a conversation
// @Tags Chats
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.Conversation
// @Failure 403 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Router /chats/{id}/unblock [post]
func (h *ChatHandler) UnblockConversation(c *fiber.Ctx) error {
	conv, err := h.service.Unblock(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(conv)
}

// DeleteConversation 刪除聊天室, 訊息保留
// @Summary Delete a conversation
// @Tags Chats
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} map[string]string
// @Failure 403 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Router /chats/{id} [delete]
func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteConversation(c.UserContext(), id, middlewares.MemberID(c)); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "message": "conversation deleted"})
}

// SendMessage 傳送訊息, REST 不推送即時事件
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body SendMessageRequest true "message"
// @Success 201 {object} domain.MessageView
// @Failure 400 {object} ErrorBody
// @Failure 403 {object} ErrorBody
// @Router /messages:send [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respondError(c, errprocess.Validation("invalid request body"))
	}

	res, err := h.service.SendMessage(c.UserContext(), middlewares.MemberID(c), SendMessageInput{
		ConversationID: req.ConversationID,
		ReceiverID:     req.ReceiverID,
		Body: domain.MessageBody{
			Content:  req.Content,
			MediaRef: req.MediaURL,
			Type:     req.MessageType,
		},
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res.Message)
}

// ListMessages 聊天室訊息, 最新在前
// @Summary List messages of a conversation
// @Tags Messages
// @Produce json
// @Param chatId path string true "conversation id"
// @Param page query int false "page"
// @Param limit query int false "limit"
// @Success 200 {object} domain.MessagePage
// @Router /messages/chat/{chatId} [get]
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	page, err := h.service.ListMessages(c.UserContext(), c.Params("chatId"), middlewares.MemberID(c), c.QueryInt("page", 1), c.QueryInt("limit", defaultPageSize))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(page)
}

// MarkRead 將對方的訊息標為已讀
// @Summary Mark a conversation read
// @Tags Messages
// @Produce json
// @Param chatId path string true "conversation id"
// @Success 200 {object} CountResponse
// @Router /messages/chat/{chatId}:mark-read [post]
func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	res, err := h.service.MarkRead(c.UserContext(), c.Params("chatId"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(CountResponse{Count: res.Count})
}

// UnreadCount 所有未讀訊息數
// @Summary Unread message count
// @Tags Messages
// @Produce json
// @Success 200 {object} CountResponse
// @Router /messages/unread-count [get]
func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.service.GetUnreadCount(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(CountResponse{Count: n})
}

// SearchMessages 聊天室內搜尋
// @Summary Search messages of a conversation
// @Tags Messages
// @Produce json
// @Param chatId path string true "conversation id"
// @Param searchTerm query string true "term"
// @Success 200 {array} domain.Message
// @Failure 400 {object} ErrorBody
// @Router /messages/chat/{chatId}/search [get]
func (h *ChatHandler) SearchMessages(c *fiber.Ctx) error {
	items, err := h.service.SearchMessages(c.UserContext(), c.Params("chatId"), middlewares.MemberID(c), c.Query("searchTerm"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

// DeleteMessage 刪除訊息, 只有傳送者可以
// @Summary Soft delete a message
// @Tags Messages
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} domain.Message
// @Failure 403 {object} ErrorBody
// @Router /messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	msg, err := h.service.DeleteMessage(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(msg)
}

// MediaURL 取得訊息附件的短期下載連結
// @Summary Presigned media URL
// @Tags Messages
// @Produce json
// @Param id path string true "message id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorBody
// @Router /messages/{id}/media-url [get]
func (h *ChatHandler) MediaURL(c *fiber.Ctx) error {
	url, err := h.service.MediaURL(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"url": url})
}
