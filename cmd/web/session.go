package main

import (
	"context"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/repositories"
)

const activeChatIDSessionKey = "activeChatID"
const chatErrorSessionKey = "chatError"

// sessionToken returns the current session's token. Brand new sessions have no
// token until the session is committed, so one is generated eagerly for them.
// Database rows reference the token and must not be written with an empty one.
func (app *application) sessionToken(ctx context.Context) (string, error) {
	if token := app.sessionManager.Token(ctx); token != "" {
		return token, nil
	}
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		return "", errors.Wrap(err, "renew session token")
	}
	return app.sessionManager.Token(ctx), nil
}

// activeChat loads the session's current chat with its turns. Returns nil
// without error when the session has no chat or the chat has been swept.
func (app *application) activeChat(ctx context.Context) (*models.Chat, error) {
	id := app.sessionManager.GetString(ctx, activeChatIDSessionKey)
	if id == "" {
		return nil, nil
	}
	chat, err := app.chats.Get(ctx, id, app.sessionManager.Token(ctx))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			app.sessionManager.Remove(ctx, activeChatIDSessionKey)
			return nil, nil
		}
		return nil, errors.Wrap(err, "load active chat")
	}
	return chat, nil
}
