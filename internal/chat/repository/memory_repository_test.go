package repository

import (
	"context"
	"testing"
	"time"

	"recruit_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, repo *MemoryMessageRepository, convID string, contents ...string) []*domain.Message {
	t.Helper()
	out := make([]*domain.Message, 0, len(contents))
	for _, c := range contents {
		m := &domain.Message{
			ID:             domain.NewMessageID(),
			ConversationID: convID,
			SenderID:       "alice",
			ReceiverID:     "bob",
			Content:        c,
			Type:           domain.MessageTypeText,
			CreatedAt:      time.Now(),
		}
		require.NoError(t, repo.Insert(context.Background(), m))
		out = append(out, m)
	}
	return out
}

func TestMemoryMessageRepository_ListVisible_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	seeded := seedMessages(t, repo, "c1", "one", "two", "three", "four", "five")
	seedMessages(t, repo, "c2", "other")

	page, total, err := repo.ListVisible(ctx, "c1", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, seeded[4].ID, page[0].ID)
	assert.Equal(t, seeded[3].ID, page[1].ID)

	page, _, err = repo.ListVisible(ctx, "c1", 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, seeded[0].ID, page[0].ID)

	page, _, err = repo.ListVisible(ctx, "c1", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryMessageRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	seeded := seedMessages(t, repo, "c1", "Interview on Monday", "monday works", "see you", "MONDAY.*")

	require.NoError(t, repo.SoftDelete(ctx, seeded[1].ID, time.Now()))

	found, err := repo.Search(ctx, "c1", "monday", 50)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, seeded[3].ID, found[0].ID)
	assert.Equal(t, seeded[0].ID, found[1].ID)

	found, err = repo.Search(ctx, "c1", "monday", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestMemoryMessageRepository_CountUnreadByConversation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	seedMessages(t, repo, "c1", "a", "b")
	seedMessages(t, repo, "c2", "c")

	counts, err := repo.CountUnreadByConversation(ctx, "bob", []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts["c1"])
	assert.EqualValues(t, 1, counts["c2"])
	assert.Zero(t, counts["c3"])
}

func TestMemoryConversationRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository()

	c1, _, _ := repo.GetOrCreate(ctx, "alice", "bob")
	c2, _, _ := repo.GetOrCreate(ctx, "alice", "carol")
	require.NoError(t, repo.AdvanceLatest(ctx, c1.ID, domain.NewMessageID(), time.Now().Add(time.Minute)))

	list, total, err := repo.FindByParticipant(ctx, "alice", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, c1.ID, list[0].ID)
	assert.Equal(t, c2.ID, list[1].ID)

	_, err = repo.UpdateBlockState(ctx, c2.ID, "alice", true, time.Now())
	require.NoError(t, err)
	blocked, err := repo.FindBlockedBy(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, c2.ID, blocked[0].ID)

	require.NoError(t, repo.Delete(ctx, c1.ID))
	assert.ErrorIs(t, repo.Delete(ctx, c1.ID), domain.ErrConversationAbsent)

	recreated, created, err := repo.GetOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, c1.ID, recreated.ID)
}

func TestMemoryConversationRepository_AdvanceLatestNeverGoesBack(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository()
	conv, _, _ := repo.GetOrCreate(ctx, "alice", "bob")

	older := domain.NewMessageID()
	newer := domain.NewMessageID()
	require.NoError(t, repo.AdvanceLatest(ctx, conv.ID, newer, time.Now()))
	require.NoError(t, repo.AdvanceLatest(ctx, conv.ID, older, time.Now()))

	got, _ := repo.FindByID(ctx, conv.ID)
	assert.Equal(t, newer, *got.LatestMessageID)
}
