package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"recruit_chat_service/internal/chat/app"
	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/metrics"
	"recruit_chat_service/internal/chat/presence"
	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/pkg/config"
	errprocess "recruit_chat_service/pkg/err"
	"recruit_chat_service/pkg/logger"
	"recruit_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	token.SetSecret("router-test-secret")
	os.Exit(m.Run())
}

type restFixture struct {
	app   *fiber.App
	svc   *app.MessagingService
	store *repository.Store
}

func newRESTFixture(t *testing.T) *restFixture {
	t.Helper()
	users := repository.NewMemoryUserDirectory(
		domain.UserSummary{ID: "alice", DisplayName: "Alice"},
		domain.UserSummary{ID: "bob", DisplayName: "Bob"},
		domain.UserSummary{ID: "carol", DisplayName: "Carol"},
	)
	store := repository.NewMemoryStore(users)
	cfg := config.Chat{}.WithDefaults()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := app.NewMessagingService(store, nil, nil, cfg.Messaging, m)

	r := fiber.New()
	RegisterRoutes(r, Dependencies{
		Websocket:        app.NewChatWebsocketHandler(svc, presence.NewRegistry(), nil, cfg.Websocket, m),
		REST:             app.NewChatHandler(svc),
		Gatherer:         reg,
		HandshakeTimeout: cfg.Websocket.HandshakeTimeout,
	})
	return &restFixture{app: r, svc: svc, store: store}
}

func (f *restFixture) do(t *testing.T, method, path, user string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		tok, err := token.GenerateJWT(user, string(token.RoleEmployer), "router_test")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestREST_ConversationLifecycle(t *testing.T) {
	f := newRESTFixture(t)

	status, raw := f.do(t, http.MethodPost, "/chats:create-or-get", "alice", app.CreateOrGetRequest{OtherUserID: "bob"})
	require.Equal(t, http.StatusOK, status, string(raw))
	conv := decode[domain.Conversation](t, raw)
	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.Participants)

	status, raw = f.do(t, http.MethodPost, "/chats:create-or-get", "bob", app.CreateOrGetRequest{OtherUserID: "alice"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, conv.ID, decode[domain.Conversation](t, raw).ID)

	status, raw = f.do(t, http.MethodGet, "/chats/"+conv.ID, "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", decode[domain.ConversationSummary](t, raw).Peer.ID)

	status, _ = f.do(t, http.MethodGet, "/chats/"+conv.ID, "carol", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = f.do(t, http.MethodPost, "/chats/"+conv.ID+"/block", "alice", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decode[domain.Conversation](t, raw).Blocked)

	status, raw = f.do(t, http.MethodGet, "/chats/blocked", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]domain.ConversationSummary](t, raw), 1)

	status, raw = f.do(t, http.MethodPost, "/chats/"+conv.ID+"/unblock", "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, errprocess.CodeForbidden, decode[app.ErrorBody](t, raw).Error.Code)

	status, _ = f.do(t, http.MethodPost, "/chats/"+conv.ID+"/unblock", "alice", nil)
	assert.Equal(t, http.StatusOK, status)

	status, raw = f.do(t, http.MethodGet, "/chats/mine?page=1&limit=10", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[app.ConversationList](t, raw)
	assert.Equal(t, int64(1), list.Total)

	status, _ = f.do(t, http.MethodDelete, "/chats/"+conv.ID, "carol", nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = f.do(t, http.MethodDelete, "/chats/"+conv.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/chats/"+conv.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestREST_Messages(t *testing.T) {
	f := newRESTFixture(t)

	status, raw := f.do(t, http.MethodPost, "/messages:send", "alice", app.SendMessageRequest{
		ReceiverID: "bob",
		Content:    "Thanks for applying",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	msg := decode[domain.MessageView](t, raw)
	assert.Equal(t, "Alice", msg.Sender.DisplayName)
	convID := msg.ConversationID

	status, raw = f.do(t, http.MethodPost, "/messages:send", "bob", app.SendMessageRequest{
		ConversationID: convID,
		Content:        "Happy to talk",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw = f.do(t, http.MethodGet, "/messages/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), decode[app.CountResponse](t, raw).Count)

	status, raw = f.do(t, http.MethodGet, "/messages/chat/"+convID+"?page=1&limit=1", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[domain.MessagePage](t, raw)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Happy to talk", page.Items[0].Content)

	status, raw = f.do(t, http.MethodPost, "/messages/chat/"+convID+":mark-read", "bob", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, int64(1), decode[app.CountResponse](t, raw).Count)

	status, raw = f.do(t, http.MethodGet, "/messages/unread-count", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decode[app.CountResponse](t, raw).Count)

	status, raw = f.do(t, http.MethodGet, "/messages/chat/"+convID+"/search?searchTerm=APPLYING", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]domain.Message](t, raw), 1)

	status, raw = f.do(t, http.MethodGet, "/messages/chat/"+convID+"/search", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errprocess.CodeValidation, decode[app.ErrorBody](t, raw).Error.Code)

	status, _ = f.do(t, http.MethodDelete, "/messages/"+msg.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = f.do(t, http.MethodDelete, "/messages/"+msg.ID, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[domain.Message](t, raw).IsDeleted)

	status, raw = f.do(t, http.MethodGet, "/messages/chat/"+convID, "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), decode[domain.MessagePage](t, raw).Total)

	stored, err := f.store.Messages.FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
}

func TestREST_ValidationAndConflict(t *testing.T) {
	f := newRESTFixture(t)

	status, raw := f.do(t, http.MethodPost, "/messages:send", "alice", app.SendMessageRequest{ReceiverID: "bob"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, errprocess.CodeValidation, decode[app.ErrorBody](t, raw).Error.Code)

	status, raw = f.do(t, http.MethodPost, "/chats:create-or-get", "alice", app.CreateOrGetRequest{OtherUserID: "alice"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, errprocess.CodeConflict, decode[app.ErrorBody](t, raw).Error.Code)

	status, _ = f.do(t, http.MethodPost, "/chats:create-or-get", "alice", app.CreateOrGetRequest{OtherUserID: "ghost"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/messages/missing/media-url", "alice", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestREST_RequiresCredential(t *testing.T) {
	f := newRESTFixture(t)

	status, raw := f.do(t, http.MethodGet, "/chats/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, string(raw), string(errprocess.CodeUnauthorized))

	status, _ = f.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestREST_MetricsAndDebug(t *testing.T) {
	f := newRESTFixture(t)

	_, _ = f.do(t, http.MethodGet, "/chats/missing", "alice", nil)

	status, raw := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "chat_handler_errors_total")

	status, _ = f.do(t, http.MethodPost, "/debug?status=true", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, logger.Log.IsDebugMode())

	status, _ = f.do(t, http.MethodPost, "/debug?status=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
