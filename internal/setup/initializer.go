package setup

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
)

// gameBuilder is the slice of the generation oracle the initializer needs.
type gameBuilder interface {
	BuildGame(ctx context.Context, title, description string, characterCount int) (*models.GameSetup, error)
}

// Initializer creates new games: it asks the oracle for a bundle, validates it, and
// persists it under a fresh game id.
type Initializer struct {
	builder gameBuilder
	store   *gamestate.Store
	logger  *slog.Logger
}

func NewInitializer(builder gameBuilder, store *gamestate.Store, logger *slog.Logger) *Initializer {
	return &Initializer{
		builder: builder,
		store:   store,
		logger:  logger.With("source", "Initializer"),
	}
}

// CreateGame generates and persists a new mystery for the user. The new game becomes the
// user's single active game. A failure after the game row exists leaves partial rows behind;
// the returned error carries the game id so the remains can be found. The counts tally the
// persisted bundle.
func (i *Initializer) CreateGame(
	ctx context.Context,
	userID, title, description string,
	characterCount int,
) (*models.Game, models.SetupCounts, error) {
	var noCounts models.SetupCounts
	bundle, err := i.builder.BuildGame(ctx, title, description, characterCount)
	if err != nil {
		return nil, noCounts, errors.Wrap(err, "generate game bundle")
	}
	if err := Validate(bundle); err != nil {
		return nil, noCounts, err
	}
	for _, warning := range danglingReferences(bundle) {
		i.logger.LogAttrs(ctx, slog.LevelWarn, "dangling reference in generated bundle",
			slog.String("detail", warning))
	}

	if err := i.store.Games.DeactivateAllForUser(ctx, userID); err != nil {
		return nil, noCounts, errors.Wrap(err, "deactivate previous games", slog.String("user_id", userID))
	}

	game := &models.Game{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          bundle.Title,
		Description:    bundle.Description,
		Status:         models.GameStatusActive,
		IsActive:       true,
		OpeningSummary: bundle.OpeningSummary,
	}
	if err := i.store.Games.Insert(ctx, game); err != nil {
		return nil, noCounts, errors.Wrap(err, "insert game", slog.String("user_id", userID))
	}

	gameID := slog.String("game_id", game.ID)
	for index := range bundle.Characters {
		bundle.Characters[index].GameID = game.ID
		if err := i.store.Characters.Insert(ctx, &bundle.Characters[index]); err != nil {
			return nil, noCounts, errors.Wrap(err, "insert character", gameID)
		}
	}
	for index := range bundle.Locations {
		bundle.Locations[index].GameID = game.ID
		if err := i.store.Locations.Insert(ctx, &bundle.Locations[index]); err != nil {
			return nil, noCounts, errors.Wrap(err, "insert location", gameID)
		}
	}
	for index := range bundle.Clues {
		bundle.Clues[index].GameID = game.ID
		if err := i.store.Clues.Insert(ctx, &bundle.Clues[index]); err != nil {
			return nil, noCounts, errors.Wrap(err, "insert clue", gameID)
		}
	}
	for index := range bundle.TimelineEvents {
		bundle.TimelineEvents[index].GameID = game.ID
		if err := i.store.Timeline.Insert(ctx, &bundle.TimelineEvents[index]); err != nil {
			return nil, noCounts, errors.Wrap(err, "insert timeline event", gameID)
		}
	}

	counts := bundle.Counts()
	i.logger.LogAttrs(ctx, slog.LevelInfo, "game created", gameID,
		slog.String("user_id", userID),
		slog.Int("characters", counts.Characters),
		slog.Int("locations", counts.Locations),
		slog.Int("clues", counts.Clues),
		slog.Int("timeline_events", counts.TimelineEvents))
	return game, counts, nil
}
