package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/director"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/reconcile"
	"github.com/myrjola/whodunnit/internal/setup"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/myrjola/whodunnit/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter replies with canned completions in order.
type scriptedCompleter struct {
	completions []string
	calls       int
}

func (c *scriptedCompleter) Complete(_ context.Context, _ []openai.ChatCompletionMessage) (string, error) {
	completion := c.completions[min(c.calls, len(c.completions)-1)]
	c.calls++
	return completion, nil
}

// idleAnalyst reports that no turn ever changes anything.
type idleAnalyst struct{}

func (idleAnalyst) AnalyzeInteraction(_ context.Context, _, _, _ string) (*models.UpdateAnalysis, error) {
	return &models.UpdateAnalysis{HasChanges: false, Summary: "Nothing changed."}, nil
}

const testBundle = `{
	"title": "The Clockmaker's Secret",
	"description": "A horologist lies dead in his workshop.",
	"opening_summary": "The body was found at dawn among stopped clocks.",
	"characters": [
		{"name": "Elias Thorn", "description": "the victim", "lie_policy": "honest",
		 "is_victim": true, "is_alive": false},
		{"name": "Mira Voss", "description": "the apprentice", "lie_policy": "deceptive",
		 "is_killer": true, "is_alive": true}
	],
	"locations": [{"name": "Workshop", "description": "cluttered benches", "is_accessible": true}],
	"clues": [{"title": "Stopped Watch", "description": "frozen at 3:12", "location_id": "Workshop",
	           "is_revealed": false, "discovery_method": "investigation", "significance_level": 5}],
	"timeline_events": [{"event_time": "2026-01-01T03:12:00Z", "event_description": "the murder",
	                     "location_id": "Workshop", "event_type": "murder", "is_public": false}]
}`

// newTestApplication wires the handlers with an in-memory database and a scripted model.
func newTestApplication(t *testing.T, completer ai.Completer) *application {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)
	return &application{
		logger:        logger,
		store:         store,
		initializer:   setup.NewInitializer(ai.NewGameBuilder(completer), store, logger),
		director:      director.NewDirector(store, completer, ai.NewSummarizer(completer), 3, logger),
		engine:        reconcile.NewEngine(store, idleAnalyst{}, nil, logger),
		oracleTimeout: 5 * time.Second,
	}
}

func postJSON(t *testing.T, server *httptest.Server, urlPath, body string) *http.Response {
	t.Helper()
	resp, err := server.Client().Post(server.URL+urlPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, resp.Body.Close())
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func Test_application_createGame(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t, &scriptedCompleter{completions: []string{testBundle}})
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	resp := postJSON(t, server, "/api/games/create/sherlock",
		`{"title": "The Clockmaker's Secret", "description": "a workshop", "character_count": 2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payload := decodeBody(t, resp)
	require.NotEmpty(t, payload["game_id"])
	require.Equal(t, "The body was found at dawn among stopped clocks.", payload["opening"])
	summary, _ := payload["summary"].(map[string]any)
	require.Equal(t, float64(2), summary["characters"])
	require.Equal(t, float64(1), summary["locations"])
	require.Equal(t, float64(1), summary["clues"])
	require.Equal(t, float64(1), summary["timeline_events"])
}

func Test_application_createGame_missingFields(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t, &scriptedCompleter{completions: []string{testBundle}})
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	resp := postJSON(t, server, "/api/games/create/sherlock", `{"title": "no description"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_application_createGame_unplayableBundle(t *testing.T) {
	t.Parallel()
	// Bundle with no killer.
	bundle := strings.Replace(testBundle, `"is_killer": true, `, "", 1)
	app := newTestApplication(t, &scriptedCompleter{completions: []string{bundle}})
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	resp := postJSON(t, server, "/api/games/create/sherlock",
		`{"title": "t", "description": "d"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func Test_application_queryGame(t *testing.T) {
	t.Parallel()
	completer := &scriptedCompleter{completions: []string{
		testBundle,
		"Mira wipes her hands on her apron. \"I was asleep, detective.\"",
	}}
	app := newTestApplication(t, completer)
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	created := postJSON(t, server, "/api/games/create/sherlock",
		`{"title": "t", "description": "d", "character_count": 2}`)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	gameID, _ := decodeBody(t, created)["game_id"].(string)
	require.NotEmpty(t, gameID)

	resp := postJSON(t, server, "/api/games/query/"+gameID, `{"query": "Mira, where were you at 3?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decodeBody(t, resp)
	require.Contains(t, payload["response"], "I was asleep")
	require.Equal(t, false, payload["solved"])
}

func Test_application_queryGame_notFound(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t, &scriptedCompleter{completions: []string{"hello"}})
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	resp := postJSON(t, server, "/api/games/query/no-such-game", `{"query": "Hello?"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_application_getGame_hidesSolution(t *testing.T) {
	t.Parallel()
	app := newTestApplication(t, &scriptedCompleter{completions: []string{testBundle}})
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	created := postJSON(t, server, "/api/games/create/sherlock",
		`{"title": "t", "description": "d", "character_count": 2}`)
	gameID, _ := decodeBody(t, created)["game_id"].(string)

	resp, err := server.Client().Get(server.URL + "/api/games/" + gameID)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, resp.Body.Close())
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.NotContains(t, string(body), "is_killer", "the solution must not leak")
	require.NotContains(t, string(body), "secrets")

	var payload struct {
		Characters []map[string]any `json:"characters"`
		Clues      []map[string]any `json:"clues"`
		Timeline   []map[string]any `json:"timeline_events"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Characters, 2)
	require.Empty(t, payload.Clues, "unrevealed clues stay hidden")
	require.Empty(t, payload.Timeline, "private events stay hidden")
}

func Test_application_listInteractions(t *testing.T) {
	t.Parallel()
	completer := &scriptedCompleter{completions: []string{testBundle, "\"Ask the clocks,\" she says."}}
	app := newTestApplication(t, completer)
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	created := postJSON(t, server, "/api/games/create/sherlock",
		`{"title": "t", "description": "d", "character_count": 2}`)
	gameID, _ := decodeBody(t, created)["game_id"].(string)

	query := postJSON(t, server, "/api/games/query/"+gameID, `{"query": "Who did this?"}`)
	require.Equal(t, http.StatusOK, query.StatusCode)

	resp, err := server.Client().Get(server.URL + "/api/games/" + gameID + "/interactions")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, resp.Body.Close())
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Interactions []models.Interaction `json:"interactions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Interactions, 1)
	require.Equal(t, "Who did this?", payload.Interactions[0].UserQuery)
}
