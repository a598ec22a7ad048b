package router

import (
	"time"

	"recruit_chat_service/internal/chat/app"
	"recruit_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies handlers and collaborators the routes are bound to
type Dependencies struct {
	Websocket        *app.ChatWebsocketHandler
	REST             *app.ChatHandler
	Sessions         middlewares.SessionValidator
	Gatherer         prometheus.Gatherer
	HandshakeTimeout time.Duration
}

// RegisterRoutes 注册聊天相关的路由
// @title Recruit Chat Service API
// @version 1.0
// @description Two-party messaging between candidates and employers
// @host localhost:8080
// @BasePath /
func RegisterRoutes(r *fiber.App, deps Dependencies) {
	r.Get("/", ConnectCheck)
	r.Post("/debug", DebugLogFlag)
	r.Get("/swagger/*", swagger.HandlerDefault)
	if deps.Gatherer != nil {
		r.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// 以下路由都需要驗證
	r.Use(middlewares.JWTMiddleware(deps.Sessions))

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		deps.Websocket.HandleConnection(c)
	}, websocket.Config{HandshakeTimeout: deps.HandshakeTimeout}))

	h := deps.REST
	r.Post("/chats\\:create-or-get", h.CreateOrGetConversation)
	chats := r.Group("/chats")
	chats.Get("/mine", h.ListMyConversations)
	chats.Get("/blocked", h.ListBlocked)
	chats.Get("/:id", h.GetConversation)
	chats.Post("/:id/block", h.BlockConversation)
	chats.Post("/:id/unblock", h.UnblockConversation)
	chats.Delete("/:id", h.DeleteConversation)

	r.Post("/messages\\:send", h.SendMessage)
	messages := r.Group("/messages")
	messages.Get("/unread-count", h.UnreadCount)
	messages.Get("/chat/:chatId", h.ListMessages)
	messages.Post("/chat/:chatId\\:mark-read", h.MarkRead)
	messages.Get("/chat/:chatId/search", h.SearchMessages)
	messages.Delete("/:id", h.DeleteMessage)
	messages.Get("/:id/media-url", h.MediaURL)
}
