package gamestate_test

import (
	"context"
	"testing"

	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGameRepository_activation(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	insertTestGame(t, store, "game-1", "sherlock")
	require.NoError(t, store.Games.DeactivateAllForUser(ctx, "sherlock"))
	insertTestGame(t, store, "game-2", "sherlock")
	insertTestGame(t, store, "game-3", "watson")

	games, err := store.Games.ListByUser(ctx, "sherlock")
	require.NoError(t, err)
	require.Len(t, games, 2)

	var activeCount int
	for _, game := range games {
		if game.IsActive {
			activeCount++
			require.Equal(t, "game-2", game.ID)
		}
	}
	require.Equal(t, 1, activeCount, "a user has at most one active game")
}

func TestGameRepository_SetStatus(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	insertTestGame(t, store, "game-1", "sherlock")
	require.NoError(t, store.Games.SetStatus(ctx, "game-1", models.GameStatusSolved))

	game, err := store.Games.Get(ctx, "game-1")
	require.NoError(t, err)
	require.Equal(t, models.GameStatusSolved, game.Status)

	err = store.Games.SetStatus(ctx, "no-such-game", models.GameStatusSolved)
	require.ErrorIs(t, err, gamestate.ErrNotFound)
}

func TestGameRepository_Get_notFound(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.Games.Get(context.Background(), "missing")
	require.ErrorIs(t, err, gamestate.ErrNotFound)
	require.True(t, errors.Is(err, gamestate.ErrNotFound))
}
