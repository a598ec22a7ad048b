package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/metrics"
	"recruit_chat_service/internal/chat/presence"
	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/pkg/config"
	errprocess "recruit_chat_service/pkg/err"
	"recruit_chat_service/pkg/logger"
	"recruit_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const previewRunes = 80

var nowFunc = time.Now

var inboundActions = map[domain.Action]bool{
	domain.SendMessage:      true,
	domain.MarkMessagesRead: true,
	domain.TypingStart:      true,
	domain.TypingStop:       true,
	domain.BlockUser:        true,
	domain.UnblockUser:      true,
}

// ChatWebsocketHandler realtime gateway, one reader and one writer goroutine per connection
type ChatWebsocketHandler struct {
	service  *MessagingService
	registry *presence.Registry
	notifier repository.OfflineNotifier
	cfg      config.WebsocketConfig
	metrics  *metrics.Metrics
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	service *MessagingService,
	registry *presence.Registry,
	notifier repository.OfflineNotifier,
	cfg config.WebsocketConfig,
	m *metrics.Metrics,
) *ChatWebsocketHandler {
	if notifier == nil {
		notifier = repository.NewNopOfflineNotifier()
	}
	return &ChatWebsocketHandler{
		service:  service,
		registry: registry,
		notifier: notifier,
		cfg:      config.Chat{Websocket: cfg}.WithDefaults().Websocket,
		metrics:  m,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	c := NewConnection(
		uuid.NewString(),
		memberID,
		h.cfg.SendQueueSize,
		NewRateLimiter(h.cfg.RateEvents, h.cfg.RateWindow),
		h.metrics,
	)

	// 未通過驗證不會進入 Active
	if memberID == "" {
		h.reject(conn)
		return
	}
	c.Advance(StateAuthenticated)

	ctx, cancel := context.WithCancel(context.Background())
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, c)
	}()

	h.activate(c)

	defer func() {
		cancel()
		h.deactivate(c)
		c.Close()
		<-writerDone
		_ = conn.Close()
		logger.Log.Info("websocket close",
			zap.String("user_id", c.UserID),
			zap.String("connection_id", c.ID),
		)
	}()

	// 超過上限的 frame 會以 1009 關閉連線
	conn.SetReadLimit(h.cfg.MaxFrameBytes)
	_ = conn.SetReadDeadline(nowFunc().Add(h.cfg.PongWait))

	//server發出ping之後client連線正常會回pong,收到即延長讀取期限
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(nowFunc().Add(h.cfg.PongWait))
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("connection_id", c.ID), zap.Error(err))
			} else {
				//直接斷線 1006 或 pong 逾時
				logger.Log.Info("websocket read error", zap.String("connection_id", c.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(nowFunc().Add(h.cfg.PongWait))

		if mt != websocket.TextMessage {
			h.fail(c, domain.WSRequest{Action: domain.ErrorEvent}, errprocess.Validation("only text frames are supported"))
			continue
		}
		h.dispatch(ctx, c, message)
	}
}

// reject close a connection that never authenticated
func (h *ChatWebsocketHandler) reject(conn *websocket.Conn) {
	resp := domain.Fail(domain.ErrorEvent, "", errprocess.Unauthorized("missing or invalid credential"))
	_ = conn.SetWriteDeadline(nowFunc().Add(h.cfg.WriteTimeout))
	if b, err := json.Marshal(resp); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
	_ = conn.Close()
}

// activate register presence, greet the connection and announce the user
func (h *ChatWebsocketHandler) activate(c *Connection) {
	c.Push(domain.Push(domain.Connected, map[string]interface{}{
		"connection_id": c.ID,
		"user_id":       c.UserID,
	}))

	first := h.registry.Register(c.ID, c.UserID, c)
	c.Advance(StateActive)
	h.refreshPresence()

	h.registry.Broadcast(domain.Push(domain.PeerOnline, map[string]interface{}{
		"user_id": c.UserID,
	}), c.ID)

	logger.Log.Info("websocket active",
		zap.String("user_id", c.UserID),
		zap.String("connection_id", c.ID),
		zap.Bool("first_connection", first),
	)
}

func (h *ChatWebsocketHandler) deactivate(c *Connection) {
	userID, last := h.registry.Unregister(c.ID)
	h.refreshPresence()
	if last {
		h.registry.Broadcast(domain.Push(domain.PeerOffline, map[string]interface{}{
			"user_id": userID,
		}), c.ID)
	}
}

func (h *ChatWebsocketHandler) refreshPresence() {
	users, conns := h.registry.Count()
	h.metrics.SetPresence(users, conns)
}

// writeLoop 唯一寫入 socket 的 goroutine, 同時負責定期 ping
func (h *ChatWebsocketHandler) writeLoop(conn *websocket.Conn, c *Connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case resp := <-c.Outbound():
			b, err := json.Marshal(resp)
			if err != nil {
				logger.Log.Error("websocket marshal error", zap.String("action", string(resp.Action)), zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(nowFunc().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Log.Info("websocket write error", zap.String("connection_id", c.ID), zap.Error(err))
				h.abort(conn, c)
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(nowFunc().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.Info("websocket ping error", zap.String("connection_id", c.ID), zap.Error(err))
				h.abort(conn, c)
				return
			}

		case <-c.Done():
			return
		}
	}
}

// abort a dead writer closes the socket so the reader unblocks and deregisters
func (h *ChatWebsocketHandler) abort(conn *websocket.Conn, c *Connection) {
	c.Close()
	_ = conn.Close()
}

func (h *ChatWebsocketHandler) dispatch(ctx context.Context, c *Connection, raw []byte) {
	var req domain.WSRequest
	// hijack 後的連線不經過 fiber recover, handler panic 轉成 INTERNAL 並保持連線
	defer func() {
		if r := recover(); r != nil {
			h.fail(c, req, errprocess.Internal(fmt.Errorf("panic: %v", r)))
		}
	}()
	if err := json.Unmarshal(raw, &req); err != nil {
		h.fail(c, domain.WSRequest{Action: domain.ErrorEvent}, errprocess.Validation("malformed event"))
		return
	}

	if c.State() != StateActive {
		h.fail(c, req, errprocess.Unauthorized("connection is not active"))
		return
	}

	if !c.Allow() {
		h.metrics.Limited()
		h.fail(c, req, errprocess.New(errprocess.CodeRateLimited, "too many events, slow down"))
		return
	}

	label := string(req.Action)
	if !inboundActions[req.Action] {
		label = "unknown"
	}
	h.metrics.Inbound(label)

	var err error
	switch req.Action {
	//傳送訊息, 寫入db後推送給接收者所有連線
	case domain.SendMessage:
		err = h.onSendMessage(ctx, c, req)

	//將對方傳來的未讀訊息改為已讀
	case domain.MarkMessagesRead:
		err = h.onMarkRead(ctx, c, req)

	//打字中, 不寫入db也不回ack
	case domain.TypingStart, domain.TypingStop:
		err = h.onTyping(ctx, c, req)

	case domain.BlockUser:
		err = h.onBlock(ctx, c, req, true)

	case domain.UnblockUser:
		err = h.onBlock(ctx, c, req, false)

	default:
		err = errprocess.Validation("unknown action")
	}

	if err != nil {
		h.fail(c, req, err)
	}
}

func (h *ChatWebsocketHandler) onSendMessage(ctx context.Context, c *Connection, req domain.WSRequest) error {
	res, err := h.service.SendMessage(ctx, c.UserID, SendMessageInput{
		ConversationID: req.ConversationID,
		ReceiverID:     req.ReceiverID,
		Body:           req.Body(),
	})
	if err != nil {
		return err
	}

	c.Push(domain.Ack(req.Action, req.RequestID, map[string]interface{}{
		"message":      res.Message,
		"conversation": res.Conversation,
	}))

	receiverID := res.Message.ReceiverID
	delivered := h.registry.SendToUser(receiverID, domain.Push(domain.NewMessage, map[string]interface{}{
		"message": res.Message,
	}), "")
	if delivered == 0 {
		h.notifyOffline(ctx, res.Message.Message)
	}

	updated := domain.Push(domain.ConversationUpdated, map[string]interface{}{
		"conversation": res.Conversation,
	})
	h.registry.SendToUser(c.UserID, updated, "")
	h.registry.SendToUser(receiverID, updated, "")
	return nil
}

func (h *ChatWebsocketHandler) onMarkRead(ctx context.Context, c *Connection, req domain.WSRequest) error {
	if req.ConversationID == "" {
		return domain.ErrMissingTarget
	}
	res, err := h.service.MarkRead(ctx, req.ConversationID, c.UserID)
	if err != nil {
		return err
	}

	c.Push(domain.Ack(req.Action, req.RequestID, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"count":           res.Count,
	}))

	h.registry.SendToUser(res.Conversation.Peer(c.UserID), domain.Push(domain.MessagesReadByPeer, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"reader_id":       c.UserID,
	}), "")
	return nil
}

func (h *ChatWebsocketHandler) onTyping(ctx context.Context, c *Connection, req domain.WSRequest) error {
	peer, err := h.service.TypingTarget(ctx, req.ConversationID, c.UserID, req.ReceiverID)
	if err != nil || peer == "" {
		return err
	}
	h.registry.SendToUser(peer, domain.Push(req.Action, map[string]interface{}{
		"conversation_id": req.ConversationID,
		"user_id":         c.UserID,
	}), "")
	return nil
}

func (h *ChatWebsocketHandler) onBlock(ctx context.Context, c *Connection, req domain.WSRequest, block bool) error {
	if req.ConversationID == "" {
		return domain.ErrMissingTarget
	}

	var (
		conv *domain.Conversation
		err  error
		push = domain.YouWereBlocked
	)
	if block {
		conv, err = h.service.Block(ctx, req.ConversationID, c.UserID)
	} else {
		conv, err = h.service.Unblock(ctx, req.ConversationID, c.UserID)
		push = domain.YouWereUnblocked
	}
	if err != nil {
		return err
	}

	c.Push(domain.Ack(req.Action, req.RequestID, map[string]interface{}{
		"conversation": conv,
	}))
	h.registry.SendToUser(conv.Peer(c.UserID), domain.Push(push, map[string]interface{}{
		"conversation_id": conv.ID,
		"by":              c.UserID,
	}), "")
	return nil
}

// fail error goes to the originating connection only, the connection stays open
func (h *ChatWebsocketHandler) fail(c *Connection, req domain.WSRequest, err error) {
	code := errprocess.CodeOf(err)
	h.metrics.Failure(string(code))

	fields := []zap.Field{
		zap.String("user_id", c.UserID),
		zap.String("connection_id", c.ID),
		zap.String("conversation_id", req.ConversationID),
		zap.String("action", string(req.Action)),
		zap.Error(err),
	}
	if code == errprocess.CodeInternal {
		logger.Log.Error("websocket err", fields...)
	} else {
		logger.Log.Debug("websocket rejected", fields...)
	}

	c.Push(domain.Fail(req.Action, req.RequestID, err))
}

// notifyOffline queue a notification for a receiver no connection accepted
func (h *ChatWebsocketHandler) notifyOffline(ctx context.Context, msg *domain.Message) {
	note := domain.OfflineNotification{
		UserID:         msg.ReceiverID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		Preview:        preview(msg.Content),
		CreatedAt:      msg.CreatedAt,
	}
	if err := h.notifier.NotifyOffline(ctx, note); err != nil {
		logger.Log.Warn("offline notification failed",
			zap.String("user_id", msg.ReceiverID),
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err),
		)
	}
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	return string([]rune(content)[:previewRunes]) + "…"
}
