package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
	"github.com/myrjola/sotopia-chat/internal/prompt"
)

// inferenceErrorBanner is shown when the model endpoint fails. The failed turn
// is not persisted, so the transcript stays as it was.
const inferenceErrorBanner = "The model could not be reached. Your conversation is unchanged, try again in a moment."

// submitTurn runs one exchange: compose the prompt, call the model, sanitize
// the completion, and append the turn to the chat. A chat is started lazily on
// the first message and restarted whenever the selection changes.
func (app *application) submitTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}
	sel := parseSelection(r)
	message := strings.TrimSpace(r.PostFormValue("message"))
	if message == "" || !app.validSelection(sel) {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if chat == nil || chatSelection(chat) != sel {
		if chat, err = app.startChat(ctx, sel); err != nil {
			app.serverError(w, r, err)
			return
		}
	}

	reply, err := app.completeTurn(ctx, chat, history(chat.Turns), message)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "inference call failed", errors.SlogError(err))
		app.renderChat(w, r, sel, chat, inferenceErrorBanner)
		return
	}

	if err = app.chats.AppendTurn(ctx, chat.ID, message, reply); err != nil {
		app.serverError(w, r, err)
		return
	}
	chat.Turns = append(chat.Turns, models.ChatTurn{
		Order:   int64(len(chat.Turns)),
		Message: message,
		Reply:   reply,
	})

	app.renderChat(w, r, sel, chat, "")
}

// retryTurn regenerates the newest reply without resubmitting the message.
func (app *application) retryTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if chat == nil || len(chat.Turns) == 0 {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}
	sel := chatSelection(chat)

	last := chat.Turns[len(chat.Turns)-1]
	reply, err := app.completeTurn(ctx, chat, history(chat.Turns[:len(chat.Turns)-1]), last.Message)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "inference call failed", errors.SlogError(err))
		app.renderChat(w, r, sel, chat, inferenceErrorBanner)
		return
	}

	if err = app.chats.ReplaceLastReply(ctx, chat.ID, reply); err != nil {
		app.serverError(w, r, err)
		return
	}
	chat.Turns[len(chat.Turns)-1].Reply = reply

	app.renderChat(w, r, sel, chat, "")
}

// undoTurn deletes the newest exchange.
func (app *application) undoTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if chat == nil || len(chat.Turns) == 0 {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	if err = app.chats.DeleteLastTurn(ctx, chat.ID); err != nil {
		app.serverError(w, r, err)
		return
	}
	chat.Turns = chat.Turns[:len(chat.Turns)-1]

	app.renderChat(w, r, chatSelection(chat), chat, "")
}

// clearChat deletes the whole conversation and starts over with the same
// selection.
func (app *application) clearChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if chat == nil {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	if err = app.chats.Delete(ctx, chat.ID, app.sessionManager.Token(ctx)); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Remove(ctx, activeChatIDSessionKey)

	app.renderChat(w, r, chatSelection(chat), nil, "")
}

// startChat freezes the selection into a new chat row and makes it the
// session's active chat.
func (app *application) startChat(ctx context.Context, sel selection) (*models.Chat, error) {
	token, err := app.sessionToken(ctx)
	if err != nil {
		return nil, err
	}
	chat, err := app.chats.Start(ctx, models.Chat{ //nolint:exhaustruct // id is assigned by the repository
		SessionToken:  token,
		EnvironmentID: sel.EnvironmentID,
		UserAgentID:   sel.UserAgentID,
		BotAgentID:    sel.BotAgentID,
		Model:         sel.Model,
	})
	if err != nil {
		return nil, errors.Wrap(err, "start chat")
	}
	app.sessionManager.Put(ctx, activeChatIDSessionKey, chat.ID)
	return chat, nil
}

// completeTurn renders the prompt for the next reply, calls the inference
// endpoint, and sanitizes the completion. A malformed completion becomes the
// placeholder reply rather than an error: the turn still happened.
func (app *application) completeTurn(
	ctx context.Context,
	chat *models.Chat,
	hist []prompt.Turn,
	message string,
) (string, error) {
	environment, err := app.snapshot.Environment(chat.EnvironmentID)
	if err != nil {
		return "", errors.Wrap(err, "resolve chat environment")
	}
	userAgent, err := app.snapshot.AgentByEndpoint(chat.UserAgentID)
	if err != nil {
		return "", errors.Wrap(err, "resolve chat user agent")
	}
	botAgent, err := app.snapshot.AgentByEndpoint(chat.BotAgentID)
	if err != nil {
		return "", errors.Wrap(err, "resolve chat bot agent")
	}

	promptText := app.composer.Build(message, hist, "", userAgent, botAgent, environment)

	raw, err := app.aiClient.Complete(ctx, chat.Model, promptText)
	if err != nil {
		return "", errors.Wrap(err, "complete prompt")
	}

	reply, err := prompt.ExtractReply(raw)
	if err != nil {
		if !errors.Is(err, prompt.ErrMalformedOutput) {
			return "", errors.Wrap(err, "extract reply")
		}
		app.logger.LogAttrs(ctx, slog.LevelWarn, "malformed model output", errors.SlogError(err))
		return prompt.PlaceholderReply, nil
	}
	return reply, nil
}

// renderChat answers a chat action: the fragment for htmx, a redirect to the
// home page for plain form posts. Errors travel in the session for the
// redirect case so that they survive the round trip.
func (app *application) renderChat(
	w http.ResponseWriter,
	r *http.Request,
	sel selection,
	chat *models.Chat,
	chatError string,
) {
	ctx := r.Context()

	if app.htmx.NewHandler(w, r).IsHxRequest() {
		data, err := app.chatState(sel, chat, chatError)
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		app.renderPartial(w, r, http.StatusOK, "chat", data)
		return
	}

	if chatError != "" {
		app.sessionManager.Put(ctx, chatErrorSessionKey, chatError)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
