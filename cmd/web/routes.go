package main

import (
	"github.com/justinas/alice"
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	api := alice.New()

	mux.Handle("GET /api/healthy", api.ThenFunc(app.healthy))

	mux.Handle("GET /api/games/{$}", api.ThenFunc(app.listGames))
	mux.Handle("POST /api/games/create/{userID}", api.ThenFunc(app.createGame))
	mux.Handle("POST /api/games/query/{gameID}", api.ThenFunc(app.queryGame))
	mux.Handle("GET /api/games/{gameID}", api.ThenFunc(app.getGame))
	mux.Handle("GET /api/games/{gameID}/interactions", api.ThenFunc(app.listInteractions))
	mux.Handle("GET /api/games/{gameID}/events", api.ThenFunc(app.streamUpdates))

	return app.recoverPanic(app.logRequest(commonHeaders(mux)))
}
