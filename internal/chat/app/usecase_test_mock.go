package app

import (
	"context"

	"recruit_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockMediaRepository mock MediaRepository
type MockMediaRepository struct {
	mock.Mock
}

// Exists mock media exists
func (m *MockMediaRepository) Exists(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// PresignedURL mock presign
func (m *MockMediaRepository) PresignedURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// MockEventPublisher mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish mock publish chat event
func (m *MockEventPublisher) Publish(ctx context.Context, event domain.ChatEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockOfflineNotifier mock OfflineNotifier
type MockOfflineNotifier struct {
	mock.Mock
}

// NotifyOffline mock offline notification
func (m *MockOfflineNotifier) NotifyOffline(ctx context.Context, note domain.OfflineNotification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

// eventOfType matcher for a published event type
func eventOfType(t domain.EventType) interface{} {
	return mock.MatchedBy(func(e domain.ChatEvent) bool { return e.Type == t })
}
