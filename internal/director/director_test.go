package director_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/myrjola/whodunnit/internal/director"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/myrjola/whodunnit/internal/testhelpers"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter replies with canned completions and records the prompts it saw.
type scriptedCompleter struct {
	completions []string
	calls       int
	seen        [][]openai.ChatCompletionMessage
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	c.seen = append(c.seen, messages)
	completion := c.completions[min(c.calls, len(c.completions)-1)]
	c.calls++
	return completion, nil
}

type fixedSummarizer struct {
	summary string
	calls   int
}

func (s *fixedSummarizer) Summarize(_ context.Context, _ []models.Interaction) (string, error) {
	s.calls++
	return s.summary, nil
}

func newTestStore(t *testing.T) *gamestate.Store {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	return gamestate.NewStore(dbs, logger)
}

func seedGame(t *testing.T, store *gamestate.Store, gameID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Games.Insert(ctx, &models.Game{
		ID:             gameID,
		UserID:         "sherlock",
		Title:          "The Clockmaker's Secret",
		Description:    "A horologist lies dead in his workshop.",
		Status:         models.GameStatusActive,
		IsActive:       true,
		OpeningSummary: "The body was found at dawn.",
	}))
	require.NoError(t, store.Characters.Insert(ctx, &models.Character{
		GameID: gameID, Name: "Mrs. Hart", Description: "the housekeeper",
		LiePolicy: models.LiePolicyEvasive, IsAlive: true,
		Metadata: models.StringMap{"image_url": "https://img.example/hart.png"},
	}))
}

func newDirector(store *gamestate.Store, completer *scriptedCompleter, s *fixedSummarizer) *director.Director {
	return director.NewDirector(store, completer, s, 3, testhelpers.NewLogger(io.Discard))
}

func TestDirector_HandleQuery(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	completer := &scriptedCompleter{completions: []string{
		"Mrs. Hart wrings her hands. \"I saw nothing, I swear it.\"",
	}}
	d := newDirector(store, completer, &fixedSummarizer{})

	reply, err := d.HandleQuery(context.Background(), "game-1", "Mrs. Hart, where were you at 3?")
	require.NoError(t, err)
	require.False(t, reply.Solved)
	require.Contains(t, reply.Text, "I saw nothing")

	interactions, err := store.Interactions.ListByGame(context.Background(), "game-1")
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	require.Equal(t, reply.Text, interactions[0].AgentResponse)
}

func TestDirector_HandleQuery_speaksAsAddressedCharacter(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	completer := &scriptedCompleter{completions: []string{"\"The kitchen, as always.\""}}
	d := newDirector(store, completer, &fixedSummarizer{})

	_, err := d.HandleQuery(context.Background(), "game-1", "Mrs. Hart, where were you at 3?")
	require.NoError(t, err)

	system := completer.seen[0][0].Content
	require.Contains(t, system, "You are Mrs. Hart")
	require.Contains(t, system, `"subjects":["Mrs. Hart"]`)
}

func TestDirector_HandleQuery_deadCharacterNeverSpeaks(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	require.NoError(t, store.Characters.Insert(context.Background(), &models.Character{
		GameID: "game-1", Name: "Elias Thorn", Description: "the victim",
		LiePolicy: models.LiePolicyHonest, IsVictim: true, IsAlive: false,
	}))
	completer := &scriptedCompleter{completions: []string{"Elias Thorn lies cold. He will answer no one."}}
	d := newDirector(store, completer, &fixedSummarizer{})

	reply, err := d.HandleQuery(context.Background(), "game-1", "I ask Elias about his enemies.")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "lies cold")

	system := completer.seen[0][0].Content
	require.NotContains(t, system, "You are Elias Thorn")
	require.Contains(t, system, "Elias Thorn, who is dead")
}

func TestDirector_HandleQuery_focusesMentionedLocation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	ctx := context.Background()
	require.NoError(t, store.Locations.Insert(ctx, &models.Location{
		GameID: "game-1", Name: "Workshop", Description: "cluttered benches", IsAccessible: true,
	}))
	require.NoError(t, store.Clues.Insert(ctx, &models.Clue{
		GameID: "game-1", Title: "Stopped Watch", Description: "frozen at 3:12",
		LocationID: "Workshop", DiscoveryMethod: models.DiscoveryMethodInvestigation,
		SignificanceLevel: 5,
	}))
	completer := &scriptedCompleter{completions: []string{"The benches are covered in gears."}}
	d := newDirector(store, completer, &fixedSummarizer{})

	_, err := d.HandleQuery(ctx, "game-1", "I search the workshop for anything unusual.")
	require.NoError(t, err)

	// The clue appears in the full state and again in the focus section.
	system := completer.seen[0][0].Content
	require.Contains(t, system, `"focus"`)
	require.Equal(t, 2, strings.Count(system, "Stopped Watch"))
}

func TestDirector_HandleQuery_gameNotFound(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	d := newDirector(store, &scriptedCompleter{completions: []string{"hello"}}, &fixedSummarizer{})

	_, err := d.HandleQuery(context.Background(), "missing", "Hello?")
	require.ErrorIs(t, err, gamestate.ErrNotFound)
}

func TestDirector_HandleQuery_solvedMarker(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	completer := &scriptedCompleter{completions: []string{
		"Brilliant deduction, detective. Mira Voss poisoned the tea over the inheritance. SOLVED",
	}}
	d := newDirector(store, completer, &fixedSummarizer{})

	reply, err := d.HandleQuery(context.Background(), "game-1", "It was Mira Voss, with the poison!")
	require.NoError(t, err)
	require.True(t, reply.Solved)
	require.NotContains(t, reply.Text, "SOLVED")

	game, err := store.Games.Get(context.Background(), "game-1")
	require.NoError(t, err)
	require.Equal(t, models.GameStatusSolved, game.Status)
}

func TestDirector_HandleQuery_scrubsIdentifiers(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	completer := &scriptedCompleter{completions: []string{
		"Her portrait hangs at https://img.example/hart.png in game game-1.",
	}}
	d := newDirector(store, completer, &fixedSummarizer{})

	reply, err := d.HandleQuery(context.Background(), "game-1", "Show me Mrs. Hart.")
	require.NoError(t, err)
	require.NotContains(t, reply.Text, "game-1")
	require.NotContains(t, reply.Text, "img.example")
}

func TestDirector_HandleQuery_summarizesLongHistory(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	seedGame(t, store, "game-1")
	ctx := context.Background()
	for range 5 {
		require.NoError(t, store.Interactions.Append(ctx, &models.Interaction{
			GameID: "game-1", UserQuery: "Anything new?", AgentResponse: "The night is quiet.",
		}))
	}
	completer := &scriptedCompleter{completions: []string{"Nothing stirs."}}
	s := &fixedSummarizer{summary: "The detective kept asking and learned nothing."}
	d := newDirector(store, completer, s)

	_, err := d.HandleQuery(ctx, "game-1", "Anything new?")
	require.NoError(t, err)
	require.Equal(t, 1, s.calls)

	// window of 3 turns: summary system message + 3 user/assistant pairs + system + query
	messages := completer.seen[0]
	require.Len(t, messages, 9)
	require.Contains(t, messages[1].Content, "kept asking")
}
