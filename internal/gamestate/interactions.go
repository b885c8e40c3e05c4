package gamestate

import (
	"context"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
	"slices"
)

// InteractionRepository stores the append-only conversation log of a game.
type InteractionRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewInteractionRepository(dbs *sqlite.Database, logger *slog.Logger) *InteractionRepository {
	return &InteractionRepository{
		dbs:    dbs,
		logger: logger.With("source", "InteractionRepository"),
	}
}

func (r *InteractionRepository) Append(ctx context.Context, interaction *models.Interaction) error {
	stmt := `INSERT INTO interactions (game_id, user_query, agent_response)
VALUES (:game_id, :user_query, :agent_response)`
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, interaction)
	if err != nil {
		return errors.Wrap(err, "append interaction", slog.String("game_id", interaction.GameID))
	}
	if interaction.ID, err = result.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	return nil
}

func (r *InteractionRepository) ListByGame(ctx context.Context, gameID string) ([]models.Interaction, error) {
	var interactions []models.Interaction
	stmt := `SELECT id, game_id, user_query, agent_response, created_at
FROM interactions WHERE game_id = ? ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &interactions, stmt, gameID); err != nil {
		return nil, errors.Wrap(err, "list interactions", slog.String("game_id", gameID))
	}
	return interactions, nil
}

// ListRecent returns the n newest interactions in chronological order.
func (r *InteractionRepository) ListRecent(ctx context.Context, gameID string, n int) ([]models.Interaction, error) {
	var interactions []models.Interaction
	stmt := `SELECT id, game_id, user_query, agent_response, created_at
FROM interactions WHERE game_id = ? ORDER BY id DESC LIMIT ?`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &interactions, stmt, gameID, n); err != nil {
		return nil, errors.Wrap(err, "list recent interactions", slog.String("game_id", gameID))
	}
	slices.Reverse(interactions)
	return interactions, nil
}
