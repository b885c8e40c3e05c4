package main

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/setup"
	"log/slog"
	"net/http"
	"strings"
)

type createGameRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	CharacterCount int    `json:"character_count"`
}

const defaultCharacterCount = 5

// createGame generates a new mystery for the user and kicks off illustration in the
// background. The response returns as soon as the game is persisted, images trickle in
// afterwards.
func (app *application) createGame(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if userID == "" {
		app.clientError(w, r, http.StatusBadRequest, "user id required")
		return
	}
	var request createGameRequest
	if err := readJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(request.Title) == "" || strings.TrimSpace(request.Description) == "" {
		app.clientError(w, r, http.StatusBadRequest, "title and description are required")
		return
	}
	if request.CharacterCount <= 0 {
		request.CharacterCount = defaultCharacterCount
	}

	ctx, cancel := context.WithTimeout(r.Context(), app.oracleTimeout)
	defer cancel()
	game, counts, err := app.initializer.CreateGame(ctx, userID, request.Title, request.Description, request.CharacterCount)
	if err != nil {
		if errors.Is(err, setup.ErrInvalidSetup) {
			app.clientError(w, r, http.StatusBadRequest, "generated game was not playable, please retry")
			return
		}
		app.serverError(w, r, err)
		return
	}

	if app.illustrator != nil {
		// Outlives the request on purpose.
		illustrationContext, cancelIllustration := context.WithTimeout(
			context.WithoutCancel(r.Context()), app.oracleTimeout)
		go func() {
			defer cancelIllustration()
			if err := app.illustrator.IllustrateGame(illustrationContext, game.ID); err != nil {
				app.logger.LogAttrs(illustrationContext, slog.LevelWarn, "illustration failed",
					slog.String("game_id", game.ID), errors.SlogError(err))
			}
		}()
	}

	app.writeJSON(w, r, http.StatusCreated, map[string]any{
		"message": "game created",
		"game_id": game.ID,
		"title":   game.Title,
		"opening": game.OpeningSummary,
		"summary": counts,
	})
}

type queryGameRequest struct {
	Query string `json:"query"`
}

// queryGame runs one player turn. The reply is written immediately; reconciliation of the
// game state happens in the background and is announced on the events stream.
func (app *application) queryGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	var request queryGameRequest
	if err := readJSON(r, &request); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		app.clientError(w, r, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), app.oracleTimeout)
	defer cancel()
	reply, err := app.director.HandleQuery(ctx, gameID, request.Query)
	if err != nil {
		if errors.Is(err, gamestate.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound, "game not found")
			return
		}
		app.serverError(w, r, err)
		return
	}

	// Outlives the request on purpose.
	reconcileContext, cancelReconcile := context.WithTimeout(
		context.WithoutCancel(r.Context()), app.oracleTimeout)
	go func() {
		defer cancelReconcile()
		app.engine.Run(reconcileContext, gameID, request.Query, reply.Text)
	}()

	app.writeJSON(w, r, http.StatusOK, reply)
}

func (app *application) listGames(w http.ResponseWriter, r *http.Request) {
	var (
		games []models.Game
		err   error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		games, err = app.store.Games.ListByUser(r.Context(), userID)
	} else {
		games, err = app.store.Games.List(r.Context())
	}
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if games == nil {
		games = []models.Game{}
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"games": games})
}

// characterView is a character as the player may see it. Guilt, secrets and lie policies
// stay server-side.
type characterView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsAlive     bool   `json:"is_alive"`
	ImageURL    string `json:"image_url,omitempty"`
}

// getGame returns the player-visible state: the cast without their secrets, the accessible
// world, revealed clues and public timeline events.
func (app *application) getGame(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	ctx := r.Context()

	game, err := app.store.Games.Get(ctx, gameID)
	if err != nil {
		if errors.Is(err, gamestate.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound, "game not found")
			return
		}
		app.serverError(w, r, err)
		return
	}
	characters, err := app.store.Characters.ListByGame(ctx, gameID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	locations, err := app.store.Locations.ListByGame(ctx, gameID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	clues, err := app.store.Clues.ListByGame(ctx, gameID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	events, err := app.store.Timeline.ListByGame(ctx, gameID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	cast := make([]characterView, 0, len(characters))
	for _, character := range characters {
		cast = append(cast, characterView{
			ID:          character.ID,
			Name:        character.Name,
			Description: character.Description,
			IsAlive:     character.IsAlive,
			ImageURL:    character.Metadata["image_url"],
		})
	}
	revealed := make([]models.Clue, 0, len(clues))
	for _, clue := range clues {
		if clue.IsRevealed {
			revealed = append(revealed, clue)
		}
	}
	public := make([]models.TimelineEvent, 0, len(events))
	for _, event := range events {
		if event.IsPublic {
			public = append(public, event)
		}
	}

	app.writeJSON(w, r, http.StatusOK, map[string]any{
		"game":            game,
		"characters":      cast,
		"locations":       locations,
		"clues":           revealed,
		"timeline_events": public,
	})
}

func (app *application) listInteractions(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	if _, err := app.store.Games.Get(r.Context(), gameID); err != nil {
		if errors.Is(err, gamestate.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound, "game not found")
			return
		}
		app.serverError(w, r, err)
		return
	}
	interactions, err := app.store.Interactions.ListByGame(r.Context(), gameID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if interactions == nil {
		interactions = []models.Interaction{}
	}
	app.writeJSON(w, r, http.StatusOK, map[string]any{"interactions": interactions})
}

// streamUpdates pushes reconciliation notices for the game as server-sent events until the
// client disconnects.
func (app *application) streamUpdates(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("gameID")
	if _, err := app.store.Games.Get(r.Context(), gameID); err != nil {
		if errors.Is(err, gamestate.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound, "game not found")
			return
		}
		app.serverError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverError(w, r, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	notices, cancel := app.feed.Subscribe(gameID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case notice, open := <-notices:
			if !open {
				return
			}
			_, _ = fmt.Fprintf(w, "event: update\ndata: {\"summary\": %q, \"applied\": %d}\n\n",
				notice.Summary, notice.Applied)
			flusher.Flush()
		}
	}
}
