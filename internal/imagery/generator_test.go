package imagery_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/imagery"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"github.com/myrjola/whodunnit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// flakyImageCreator fails the first n calls, then returns URLs.
type flakyImageCreator struct {
	failuresLeft int
	calls        int
}

func (c *flakyImageCreator) CreateImage(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return "", errors.New("content policy violation")
	}
	return "https://img.example/generated.png", nil
}

func TestGenerator_IllustrateGame(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)
	ctx := context.Background()

	require.NoError(t, store.Games.Insert(ctx, &models.Game{
		ID: "game-1", UserID: "sherlock", Title: "The Clockmaker's Secret",
		Description: "d", Status: models.GameStatusActive, IsActive: true,
	}))
	require.NoError(t, store.Characters.Insert(ctx, &models.Character{
		GameID: "game-1", Name: "Mira Voss", Description: "the apprentice",
		LiePolicy: models.LiePolicyDeceptive, IsAlive: true,
	}))
	require.NoError(t, store.Clues.Insert(ctx, &models.Clue{
		GameID: "game-1", Title: "Bloody Knife", Description: "dried blood on the blade",
		LocationID: "Kitchen", DiscoveryMethod: models.DiscoveryMethodInvestigation,
		SignificanceLevel: 4,
	}))

	creator := &flakyImageCreator{failuresLeft: 0}
	generator := imagery.NewGenerator(creator, store, logger)
	require.NoError(t, generator.IllustrateGame(ctx, "game-1"))

	character, err := store.Characters.GetByName(ctx, "game-1", "Mira Voss")
	require.NoError(t, err)
	require.Equal(t, "https://img.example/generated.png", character.Metadata["image_url"])

	clue, err := store.Clues.GetByTitle(ctx, "game-1", "Bloody Knife")
	require.NoError(t, err)
	require.Equal(t, "https://img.example/generated.png", clue.Metadata["image_url"])
}

func TestGenerator_IllustrateGame_cluePromptCascade(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)
	ctx := context.Background()

	require.NoError(t, store.Games.Insert(ctx, &models.Game{
		ID: "game-1", UserID: "sherlock", Title: "t",
		Description: "d", Status: models.GameStatusActive, IsActive: true,
	}))
	require.NoError(t, store.Clues.Insert(ctx, &models.Clue{
		GameID: "game-1", Title: "Bloody Knife", Description: "dried blood",
		LocationID: "Kitchen", DiscoveryMethod: models.DiscoveryMethodInvestigation,
		SignificanceLevel: 4,
	}))

	creator := &flakyImageCreator{failuresLeft: 2}
	generator := imagery.NewGenerator(creator, store, logger)
	require.NoError(t, generator.IllustrateGame(ctx, "game-1"))

	require.Equal(t, 3, creator.calls, "two refused prompts plus the tame one")
	clue, err := store.Clues.GetByTitle(ctx, "game-1", "Bloody Knife")
	require.NoError(t, err)
	require.Equal(t, "https://img.example/generated.png", clue.Metadata["image_url"])
}

func TestGenerator_IllustrateClue(t *testing.T) {
	t.Parallel()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})
	store := gamestate.NewStore(dbs, logger)
	ctx := context.Background()

	require.NoError(t, store.Games.Insert(ctx, &models.Game{
		ID: "game-1", UserID: "sherlock", Title: "t",
		Description: "d", Status: models.GameStatusActive, IsActive: true,
	}))
	require.NoError(t, store.Clues.Insert(ctx, &models.Clue{
		GameID: "game-1", Title: "Bloody Knife", Description: "dried blood",
		LocationID: "Kitchen", DiscoveryMethod: models.DiscoveryMethodInvestigation,
		SignificanceLevel: 4,
	}))

	creator := &flakyImageCreator{}
	generator := imagery.NewGenerator(creator, store, logger)
	require.NoError(t, generator.IllustrateClue(ctx, "game-1", "bloody knife"))

	clue, err := store.Clues.GetByTitle(ctx, "game-1", "Bloody Knife")
	require.NoError(t, err)
	require.Equal(t, "https://img.example/generated.png", clue.Metadata["image_url"])

	err = generator.IllustrateClue(ctx, "game-1", "No Such Clue")
	require.ErrorIs(t, err, gamestate.ErrNotFound)
}
