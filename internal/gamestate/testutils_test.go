package gamestate_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/myrjola/whodunnit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

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

func insertTestGame(t *testing.T, store *gamestate.Store, id, userID string) *models.Game {
	t.Helper()
	game := &models.Game{
		ID:             id,
		UserID:         userID,
		Title:          "The Clockmaker's Secret",
		Description:    "A horologist lies dead in his workshop.",
		Status:         models.GameStatusActive,
		IsActive:       true,
		OpeningSummary: "The body was found at dawn among stopped clocks.",
	}
	require.NoError(t, store.Games.Insert(context.Background(), game))
	return game
}
