package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/repositories"
	"github.com/myrjola/sotopia-chat/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newTestChat(sessionToken string) models.Chat {
	return models.Chat{
		SessionToken:  sessionToken,
		EnvironmentID: "env-negotiation",
		UserAgentID:   "casey_rivera",
		BotAgentID:    "jordan_chen",
		Model:         "test-model",
	}
}

func TestChatRepository_StartAndGet(t *testing.T) {
	t.Parallel()
	dbs := newTestDB(t)
	newTestSession(t, dbs, "session-1")
	repo := repositories.NewChatRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	chat, err := repo.Start(ctx, newTestChat("session-1"))
	require.NoError(t, err)
	require.NotEmpty(t, chat.ID)

	got, err := repo.Get(ctx, chat.ID, "session-1")
	require.NoError(t, err)
	require.Equal(t, chat.EnvironmentID, got.EnvironmentID)
	require.Equal(t, chat.UserAgentID, got.UserAgentID)
	require.Equal(t, chat.BotAgentID, got.BotAgentID)
	require.Equal(t, chat.Model, got.Model)
	require.Empty(t, got.Turns)

	// Another session must not see the chat.
	_, err = repo.Get(ctx, chat.ID, "session-2")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestChatRepository_turns(t *testing.T) {
	t.Parallel()
	dbs := newTestDB(t)
	newTestSession(t, dbs, "session-1")
	repo := repositories.NewChatRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	chat, err := repo.Start(ctx, newTestChat("session-1"))
	require.NoError(t, err)

	require.NoError(t, repo.AppendTurn(ctx, chat.ID, "Hello.", "Hi there."))
	require.NoError(t, repo.AppendTurn(ctx, chat.ID, "How are you?", "Fine, thanks."))

	got, err := repo.Get(ctx, chat.ID, "session-1")
	require.NoError(t, err)
	require.Equal(t, []models.ChatTurn{
		{Order: 0, Message: "Hello.", Reply: "Hi there."},
		{Order: 1, Message: "How are you?", Reply: "Fine, thanks."},
	}, got.Turns)

	// Regenerating replaces only the newest reply.
	require.NoError(t, repo.ReplaceLastReply(ctx, chat.ID, "Could be better."))
	got, err = repo.Get(ctx, chat.ID, "session-1")
	require.NoError(t, err)
	require.Equal(t, "Hi there.", got.Turns[0].Reply)
	require.Equal(t, "Could be better.", got.Turns[1].Reply)

	// Undo removes the newest exchange.
	require.NoError(t, repo.DeleteLastTurn(ctx, chat.ID))
	got, err = repo.Get(ctx, chat.ID, "session-1")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)

	// Undoing an empty chat is a no-op.
	require.NoError(t, repo.DeleteLastTurn(ctx, chat.ID))
	require.NoError(t, repo.DeleteLastTurn(ctx, chat.ID))
}

func TestChatRepository_ReplaceLastReply_emptyChat(t *testing.T) {
	t.Parallel()
	dbs := newTestDB(t)
	newTestSession(t, dbs, "session-1")
	repo := repositories.NewChatRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	chat, err := repo.Start(ctx, newTestChat("session-1"))
	require.NoError(t, err)

	err = repo.ReplaceLastReply(ctx, chat.ID, "nothing to replace")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestChatRepository_Delete(t *testing.T) {
	t.Parallel()
	dbs := newTestDB(t)
	newTestSession(t, dbs, "session-1")
	repo := repositories.NewChatRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	chat, err := repo.Start(ctx, newTestChat("session-1"))
	require.NoError(t, err)
	require.NoError(t, repo.AppendTurn(ctx, chat.ID, "Hello.", "Hi there."))

	require.NoError(t, repo.Delete(ctx, chat.ID, "session-1"))

	_, err = repo.Get(ctx, chat.ID, "session-1")
	require.ErrorIs(t, err, repositories.ErrNotFound)

	// The turns must be gone with the chat.
	var count int
	err = dbs.ReadOnly.Get(&count, `SELECT COUNT(*) FROM chat_turns WHERE chat_id = ?`, chat.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestChatRepository_DeleteOrphaned(t *testing.T) {
	t.Parallel()
	dbs := newTestDB(t)
	newTestSession(t, dbs, "session-alive")
	repo := repositories.NewChatRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	alive, err := repo.Start(ctx, newTestChat("session-alive"))
	require.NoError(t, err)
	orphan, err := repo.Start(ctx, newTestChat("session-expired"))
	require.NoError(t, err)
	require.NoError(t, repo.AppendTurn(ctx, orphan.ID, "Hello?", "Anyone there?"))

	deleted, err := repo.DeleteOrphaned(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = repo.Get(ctx, alive.ID, "session-alive")
	require.NoError(t, err)
	_, err = repo.Get(ctx, orphan.ID, "session-expired")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}
