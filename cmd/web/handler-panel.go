package main

import (
	"net/http"
)

// panel recomputes the dependent dropdowns for the submitted selection: the
// candidate participants follow from the scenario's relationship, and stale
// values snap to the first valid candidate. htmx swaps the fragment in place,
// plain requests get the whole page.
func (app *application) panel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sel := app.normalizeSelection(parseSelection(r))

	chat, err := app.activeChat(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	data, err := app.workspaceState(sel, chat, "")
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if app.htmx.NewHandler(w, r).IsHxRequest() {
		app.renderPartial(w, r, http.StatusOK, "workspace", data)
		return
	}
	app.render(w, r, http.StatusOK, "home", homeTemplateData{Workspace: data})
}
