package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/internal/chat/presence"
	"recruit_chat_service/internal/chat/repository"
	"recruit_chat_service/pkg/config"
	errprocess "recruit_chat_service/pkg/err"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

type chatSuite struct {
	store    *repository.Store
	svc      *MessagingService
	registry *presence.Registry
	gateway  *ChatWebsocketHandler

	conv     *domain.Conversation
	opened   []string
	lastMsg  *domain.Message
	lastErr  error
	devices  map[string][]*Connection
	received map[*Connection][]domain.WSResponse
}

func (s *chatSuite) reset(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	*s = chatSuite{
		devices:  map[string][]*Connection{},
		received: map[*Connection][]domain.WSResponse{},
	}
	return ctx, nil
}

func (s *chatSuite) usersExist(a, b, c string) error {
	users := repository.NewMemoryUserDirectory()
	for _, id := range []string{a, b, c} {
		users.Add(domain.UserSummary{ID: id, DisplayName: id})
	}
	s.store = repository.NewMemoryStore(users)
	s.svc = NewMessagingService(s.store, nil, nil, config.Chat{}.WithDefaults().Messaging, nil)
	s.registry = presence.NewRegistry()
	s.gateway = NewChatWebsocketHandler(s.svc, s.registry, nil, config.WebsocketConfig{}, nil)
	return nil
}

func (s *chatSuite) record(res *SendResult, err error) {
	s.lastErr = err
	if err == nil {
		s.conv = res.Conversation
		s.lastMsg = res.Message.Message
	}
}

func (s *chatSuite) sendsTo(from, content, to string) error {
	s.record(s.svc.SendMessage(context.Background(), from, SendMessageInput{
		ReceiverID: to,
		Body:       domain.MessageBody{Content: content},
	}))
	return nil
}

func (s *chatSuite) sent(from, content, to string) error {
	_ = s.sendsTo(from, content, to)
	return s.lastErr
}

func (s *chatSuite) sendsInConversation(from, content string) error {
	s.record(s.svc.SendMessage(context.Background(), from, SendMessageInput{
		ConversationID: s.conv.ID,
		Body:           domain.MessageBody{Content: content},
	}))
	return nil
}

func (s *chatSuite) requestSucceeds() error {
	return s.lastErr
}

func (s *chatSuite) rejectedWith(code string) error {
	if s.lastErr == nil {
		return errors.New("expected the request to fail")
	}
	if got := errprocess.CodeOf(s.lastErr); string(got) != code {
		return fmt.Errorf("expected %s, got %s (%v)", code, got, s.lastErr)
	}
	return nil
}

func (s *chatSuite) conversationExists(a, b string) error {
	conv, created, err := s.store.GetOrCreateConversation(context.Background(), a, b)
	if err != nil {
		return err
	}
	if created || conv.ID != s.conv.ID {
		return errors.New("conversation was not persisted")
	}
	return nil
}

func (s *chatSuite) lastMessageUnread() error {
	msg, err := s.store.Messages.FindByID(context.Background(), s.lastMsg.ID)
	if err != nil {
		return err
	}
	if msg.IsRead {
		return errors.New("message already read")
	}
	return nil
}

func (s *chatSuite) hasUnread(user string, want int) error {
	n, err := s.svc.GetUnreadCount(context.Background(), user)
	if err != nil {
		return err
	}
	if n != int64(want) {
		return fmt.Errorf("%s has %d unread, want %d", user, n, want)
	}
	return nil
}

func (s *chatSuite) opens(user, other string) error {
	conv, err := s.svc.GetOrCreateConversation(context.Background(), user, other)
	if err != nil {
		return err
	}
	s.opened = append(s.opened, conv.ID)
	return nil
}

func (s *chatSuite) sameConversation() error {
	if len(s.opened) != 2 || s.opened[0] != s.opened[1] {
		return fmt.Errorf("conversation ids differ: %v", s.opened)
	}
	return nil
}

func (s *chatSuite) blocks(user string) error {
	_, s.lastErr = s.svc.Block(context.Background(), s.conv.ID, user)
	return nil
}

func (s *chatSuite) unblocks(user string) error {
	_, s.lastErr = s.svc.Unblock(context.Background(), s.conv.ID, user)
	return nil
}

func (s *chatSuite) latestUnchanged() error {
	conv, err := s.store.Conversations.FindByID(context.Background(), s.conv.ID)
	if err != nil {
		return err
	}
	if conv.LatestMessageID == nil || *conv.LatestMessageID != s.lastMsg.ID {
		return errors.New("latest message pointer moved")
	}
	page, err := s.svc.ListMessages(context.Background(), s.conv.ID, s.lastMsg.SenderID, 1, 10)
	if err != nil {
		return err
	}
	if page.Total != 1 {
		return fmt.Errorf("expected 1 persisted message, got %d", page.Total)
	}
	return nil
}

func (s *chatSuite) marksRead(user string) error {
	_, s.lastErr = s.svc.MarkRead(context.Background(), s.conv.ID, user)
	return s.lastErr
}

func (s *chatSuite) listsMessages(user string) error {
	_, s.lastErr = s.svc.ListMessages(context.Background(), s.conv.ID, user, 1, 10)
	return nil
}

func (s *chatSuite) deletesLast(user string) error {
	_, err := s.svc.DeleteMessage(context.Background(), s.lastMsg.ID, user)
	return err
}

func (s *chatSuite) seesMessages(user string, want int) error {
	page, err := s.svc.ListMessages(context.Background(), s.conv.ID, user, 1, 10)
	if err != nil {
		return err
	}
	if len(page.Items) != want {
		return fmt.Errorf("%s sees %d messages, want %d", user, len(page.Items), want)
	}
	return nil
}

func (s *chatSuite) searchFinds(term, user string, want int) error {
	found, err := s.svc.SearchMessages(context.Background(), s.conv.ID, user, term)
	if err != nil {
		return err
	}
	if len(found) != want {
		return fmt.Errorf("search %q found %d, want %d", term, len(found), want)
	}
	return nil
}

func (s *chatSuite) deletedStillStored() error {
	msg, err := s.store.Messages.FindByID(context.Background(), s.lastMsg.ID)
	if err != nil {
		return err
	}
	if !msg.IsDeleted {
		return errors.New("message is not marked deleted")
	}
	return nil
}

func (s *chatSuite) connected(user string, n int) error {
	for i := 0; i < n; i++ {
		c := NewConnection(uuid.NewString(), user, 64, nil, nil)
		c.Advance(StateAuthenticated)
		s.gateway.activate(c)
		s.devices[user] = append(s.devices[user], c)
	}
	s.drain()
	s.received = map[*Connection][]domain.WSResponse{}
	return nil
}

// drain move every queued push into received
func (s *chatSuite) drain() {
	for _, conns := range s.devices {
		for _, c := range conns {
			for {
				select {
				case resp := <-c.Outbound():
					s.received[c] = append(s.received[c], resp)
					continue
				default:
				}
				break
			}
		}
	}
}

func (s *chatSuite) sendsOverSocket(from, content, to string) error {
	raw, err := json.Marshal(domain.WSRequest{
		Action:     domain.SendMessage,
		RequestID:  "bdd",
		ReceiverID: to,
		Content:    content,
	})
	if err != nil {
		return err
	}
	s.gateway.dispatch(context.Background(), s.devices[from][0], raw)
	s.drain()
	return nil
}

func (s *chatSuite) devicesReceive(user string, want int, action string) error {
	if len(s.devices[user]) == 0 {
		return fmt.Errorf("%s has no devices", user)
	}
	for i, c := range s.devices[user] {
		got := 0
		for _, resp := range s.received[c] {
			if resp.Action == domain.Action(action) {
				got++
			}
		}
		if got != want {
			return fmt.Errorf("%s device %d received %d %s, want %d", user, i, got, action, want)
		}
	}
	return nil
}

func InitializeChatScenario(ctx *godog.ScenarioContext) {
	s := &chatSuite{}
	ctx.Before(s.reset)

	ctx.Step(`^users "([^"]*)", "([^"]*)" and "([^"]*)" exist$`, s.usersExist)
	ctx.Step(`^"([^"]*)" sends "([^"]*)" to "([^"]*)"$`, s.sendsTo)
	ctx.Step(`^"([^"]*)" sent "([^"]*)" to "([^"]*)"$`, s.sent)
	ctx.Step(`^"([^"]*)" sends "([^"]*)" in the conversation$`, s.sendsInConversation)
	ctx.Step(`^the request succeeds$`, s.requestSucceeds)
	ctx.Step(`^the request is rejected with "([^"]*)"$`, s.rejectedWith)
	ctx.Step(`^the conversation between "([^"]*)" and "([^"]*)" exists$`, s.conversationExists)
	ctx.Step(`^the last message is unread$`, s.lastMessageUnread)
	ctx.Step(`^"([^"]*)" has (\d+) unread messages$`, s.hasUnread)
	ctx.Step(`^"([^"]*)" opens a conversation with "([^"]*)"$`, s.opens)
	ctx.Step(`^both calls return the same conversation$`, s.sameConversation)
	ctx.Step(`^"([^"]*)" blocks the conversation$`, s.blocks)
	ctx.Step(`^"([^"]*)" unblocks the conversation$`, s.unblocks)
	ctx.Step(`^the latest message is unchanged$`, s.latestUnchanged)
	ctx.Step(`^"([^"]*)" marks the conversation read$`, s.marksRead)
	ctx.Step(`^"([^"]*)" lists the messages of the conversation$`, s.listsMessages)
	ctx.Step(`^"([^"]*)" deletes the last message$`, s.deletesLast)
	ctx.Step(`^"([^"]*)" sees (\d+) messages in the conversation$`, s.seesMessages)
	ctx.Step(`^searching "([^"]*)" as "([^"]*)" finds (\d+) messages$`, s.searchFinds)
	ctx.Step(`^the deleted message is still stored$`, s.deletedStillStored)
	ctx.Step(`^"([^"]*)" is connected on (\d+) devices$`, s.connected)
	ctx.Step(`^"([^"]*)" sends "([^"]*)" to "([^"]*)" over the socket$`, s.sendsOverSocket)
	ctx.Step(`^every device of "([^"]*)" receives (\d+) "([^"]*)" events$`, s.devicesReceive)
}

func TestChatFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "chat",
		ScenarioInitializer: InitializeChatScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
