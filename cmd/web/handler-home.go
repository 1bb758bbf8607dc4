package main

import (
	"net/http"
)

type homeTemplateData struct {
	Workspace workspaceData
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	// An ongoing chat restores its selection, otherwise the defaults apply.
	sel := parseSelection(r)
	if sel == (selection{}) && chat != nil {
		sel = chatSelection(chat)
	}
	sel = app.normalizeSelection(sel)

	data, err := app.workspaceState(sel, chat, app.sessionManager.PopString(ctx, chatErrorSessionKey))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.render(w, r, http.StatusOK, "home", homeTemplateData{Workspace: data})
}
