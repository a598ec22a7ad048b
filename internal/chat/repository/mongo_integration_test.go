//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"recruit_chat_service/internal/chat/domain"
	"recruit_chat_service/pkg/database"
	testtool "recruit_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupMongo start a mongo container and return a fresh database with indexes
func setupMongo(t *testing.T) *database.MongoDB {
	t.Helper()
	ctx := context.Background()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	db, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", host, port),
		RetryCount:    5,
		RetryInterval: time.Second,
	}, "chat_integration")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	require.NoError(t, EnsureIndexes(ctx, db.Database))
	return db
}

func TestMongoStore(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()

	users := NewMemoryUserDirectory(
		domain.UserSummary{ID: "alice", DisplayName: "Alice"},
		domain.UserSummary{ID: "bob", DisplayName: "Bob"},
	)
	store := NewStore(NewMongoConversationRepository(db.Database), NewMongoMessageRepository(db.Database), users)

	t.Run("get or create is idempotent under concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		ids := make([]string, 10)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := "alice", "bob"
				if i%2 == 1 {
					a, b = b, a
				}
				conv, _, err := store.GetOrCreateConversation(ctx, a, b)
				if assert.NoError(t, err) {
					ids[i] = conv.ID
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	conv, _, err := store.GetOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	t.Run("append moves the latest pointer", func(t *testing.T) {
		var last *domain.Message
		for _, c := range []string{"Hello", "second hello", "bye"} {
			last, err = store.AppendMessage(ctx, conv.ID, "alice", "bob", domain.MessageBody{Content: c, Type: domain.MessageTypeText})
			require.NoError(t, err)
		}
		got, err := store.Conversations.FindByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, last.ID, *got.LatestMessageID)
	})

	t.Run("search is case-insensitive and literal", func(t *testing.T) {
		found, err := store.Messages.Search(ctx, conv.ID, "HELLO", 50)
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = store.Messages.Search(ctx, conv.ID, ".*", 50)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("unread counts and mark read", func(t *testing.T) {
		n, err := store.Messages.CountUnread(ctx, "bob")
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		byConv, err := store.Messages.CountUnreadByConversation(ctx, "bob", []string{conv.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 3, byConv[conv.ID])

		_, read, err := store.MarkRead(ctx, conv.ID, "bob")
		require.NoError(t, err)
		assert.EqualValues(t, 3, read)

		_, read, err = store.MarkRead(ctx, conv.ID, "bob")
		require.NoError(t, err)
		assert.Zero(t, read)
	})

	t.Run("block state machine", func(t *testing.T) {
		_, err := store.SetBlockState(ctx, conv.ID, "alice", true)
		require.NoError(t, err)

		_, err = store.SetBlockState(ctx, conv.ID, "bob", false)
		assert.ErrorIs(t, err, domain.ErrNotBlocker)

		blocked, err := store.Conversations.FindBlockedBy(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, blocked, 1)

		got, err := store.SetBlockState(ctx, conv.ID, "alice", false)
		require.NoError(t, err)
		assert.False(t, got.Blocked)
		assert.Nil(t, got.BlockedBy)
	})

	t.Run("soft delete keeps the record and rewinds the pointer", func(t *testing.T) {
		page, total, err := store.Messages.ListVisible(ctx, conv.ID, 1, 10)
		require.NoError(t, err)
		require.EqualValues(t, 3, total)

		_, err = store.SoftDeleteMessage(ctx, page[0].ID, "alice")
		require.NoError(t, err)

		raw, err := store.Messages.FindByID(ctx, page[0].ID)
		require.NoError(t, err)
		assert.True(t, raw.IsDeleted)

		got, err := store.Conversations.FindByID(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, page[1].ID, *got.LatestMessageID)
	})
}
