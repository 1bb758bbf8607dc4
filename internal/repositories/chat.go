// Package repositories persists chats and their turns in SQLite.
package repositories

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/sqlite"
)

// ErrNotFound means the chat does not exist or belongs to another session.
var ErrNotFound = errors.NewSentinel("chat not found")

type ChatRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewChatRepository(dbs *sqlite.Database, logger *slog.Logger) *ChatRepository {
	return &ChatRepository{
		dbs:    dbs,
		logger: logger.With("source", "ChatRepository"),
	}
}

// Start creates a chat with the given selection and returns it with its fresh
// id. The selection is frozen for the lifetime of the chat.
func (r *ChatRepository) Start(ctx context.Context, chat models.Chat) (*models.Chat, error) {
	chat.ID = uuid.NewString()
	chat.Turns = nil
	stmt := `INSERT INTO chats (id, session_token, environment_id, user_agent_id, bot_agent_id, model)
VALUES (:id, :session_token, :environment_id, :user_agent_id, :bot_agent_id, :model)`
	if _, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, chat); err != nil {
		return nil, errors.Wrap(err, "insert chat")
	}
	return &chat, nil
}

// Get fetches a chat with its turns in order. The session token scopes the
// lookup so that one visitor cannot read another visitor's transcript.
func (r *ChatRepository) Get(ctx context.Context, id, sessionToken string) (*models.Chat, error) {
	var chat models.Chat
	stmt := `SELECT id, session_token, environment_id, user_agent_id, bot_agent_id, model
FROM chats
WHERE id = ? AND session_token = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &chat, stmt, id, sessionToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "read chat", slog.String("chatID", id))
		}
		return nil, errors.Wrap(err, "read chat")
	}

	stmt = `SELECT "order", message, reply FROM chat_turns WHERE chat_id = ? ORDER BY "order"`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &chat.Turns, stmt, id); err != nil {
		return nil, errors.Wrap(err, "read chat turns")
	}
	return &chat, nil
}

// AppendTurn adds a completed exchange to the end of the chat.
func (r *ChatRepository) AppendTurn(ctx context.Context, chatID, message, reply string) error {
	stmt := `INSERT INTO chat_turns (chat_id, "order", message, reply)
SELECT @chat_id, COALESCE(MAX("order") + 1, 0), @message, @reply
FROM chat_turns
WHERE chat_id = @chat_id`
	params := []any{
		sql.Named("chat_id", chatID),
		sql.Named("message", message),
		sql.Named("reply", reply),
	}
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "insert chat turn")
	}
	return nil
}

// ReplaceLastReply overwrites the newest turn's reply, e.g. after the visitor
// asks for a regenerated answer.
func (r *ChatRepository) ReplaceLastReply(ctx context.Context, chatID, reply string) error {
	stmt := `UPDATE chat_turns SET reply = ?
WHERE chat_id = ? AND "order" = (SELECT MAX("order") FROM chat_turns WHERE chat_id = ?)`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, reply, chatID, chatID)
	if err != nil {
		return errors.Wrap(err, "update last reply")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "chat has no turns", slog.String("chatID", chatID))
	}
	return nil
}

// DeleteLastTurn removes the newest exchange from the chat. Deleting from an
// empty chat is a no-op.
func (r *ChatRepository) DeleteLastTurn(ctx context.Context, chatID string) error {
	stmt := `DELETE FROM chat_turns
WHERE chat_id = ? AND "order" = (SELECT MAX("order") FROM chat_turns WHERE chat_id = ?)`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, chatID, chatID); err != nil {
		return errors.Wrap(err, "delete last turn")
	}
	return nil
}

// Delete removes the chat and its turns.
func (r *ChatRepository) Delete(ctx context.Context, id, sessionToken string) error {
	stmt := `DELETE FROM chats WHERE id = ? AND session_token = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, id, sessionToken); err != nil {
		return errors.Wrap(err, "delete chat")
	}
	return nil
}

// DeleteOrphaned removes chats whose session has expired. The session store
// cleans up expired sessions on its own, so anything without a matching
// session row is unreachable.
func (r *ChatRepository) DeleteOrphaned(ctx context.Context) (int64, error) {
	stmt := `DELETE FROM chats WHERE session_token NOT IN (SELECT token FROM sessions)`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt)
	if err != nil {
		return 0, errors.Wrap(err, "delete orphaned chats")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return deleted, nil
}

// StartJanitor sweeps orphaned chats once per hour until the context is
// cancelled.
func (r *ChatRepository) StartJanitor(ctx context.Context) {
	for {
		if deleted, err := r.DeleteOrphaned(ctx); err != nil {
			err = errors.Wrap(err, "sweep orphaned chats")
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to sweep orphaned chats", errors.SlogError(err))
		} else if deleted > 0 {
			r.logger.LogAttrs(ctx, slog.LevelDebug, "swept orphaned chats", slog.Int64("deleted", deleted))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Hour):
			continue
		}
	}
}
