package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	dynamic := alice.New(app.sessionManager.LoadAndSave, noSurf, app.commonContext)

	mux.HandleFunc("GET /api/healthy", app.healthy)

	mux.Handle("GET /{$}", dynamic.Then(timeoutHandler(http.HandlerFunc(app.home), defaultTimeout)))
	mux.Handle("GET /panel", dynamic.Then(timeoutHandler(http.HandlerFunc(app.panel), defaultTimeout)))

	mux.Handle("POST /chat", dynamic.ThenFunc(app.submitTurn))
	mux.Handle("POST /chat/retry", dynamic.ThenFunc(app.retryTurn))
	mux.Handle("POST /chat/undo", dynamic.ThenFunc(app.undoTurn))
	mux.Handle("POST /chat/clear", dynamic.ThenFunc(app.clearChat))

	return alice.New(app.recoverPanic, app.logRequest, app.secureHeaders).Then(mux)
}
