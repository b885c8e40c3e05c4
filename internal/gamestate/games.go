package gamestate

import (
	"context"
	"database/sql"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
)

type GameRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewGameRepository(dbs *sqlite.Database, logger *slog.Logger) *GameRepository {
	return &GameRepository{
		dbs:    dbs,
		logger: logger.With("source", "GameRepository"),
	}
}

func (r *GameRepository) Insert(ctx context.Context, game *models.Game) error {
	stmt := `INSERT INTO games (id, user_id, title, description, status, is_active, opening_summary)
VALUES (:id, :user_id, :title, :description, :status, :is_active, :opening_summary)`
	if _, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, game); err != nil {
		return errors.Wrap(err, "insert game", slog.String("game_id", game.ID))
	}
	return nil
}

func (r *GameRepository) Get(ctx context.Context, id string) (*models.Game, error) {
	var game models.Game
	stmt := `SELECT id, user_id, title, description, status, is_active, opening_summary, created_at, updated_at
FROM games WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &game, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get game", slog.String("game_id", id))
		}
		return nil, errors.Wrap(err, "get game", slog.String("game_id", id))
	}
	return &game, nil
}

func (r *GameRepository) List(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	stmt := `SELECT id, user_id, title, description, status, is_active, opening_summary, created_at, updated_at
FROM games ORDER BY created_at DESC, id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &games, stmt); err != nil {
		return nil, errors.Wrap(err, "list games")
	}
	return games, nil
}

func (r *GameRepository) ListByUser(ctx context.Context, userID string) ([]models.Game, error) {
	var games []models.Game
	stmt := `SELECT id, user_id, title, description, status, is_active, opening_summary, created_at, updated_at
FROM games WHERE user_id = ? ORDER BY created_at DESC, id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &games, stmt, userID); err != nil {
		return nil, errors.Wrap(err, "list games for user", slog.String("user_id", userID))
	}
	return games, nil
}

// DeactivateAllForUser clears the is_active flag on every game the user owns. Called before
// activating a new game so that at most one game per user is active.
func (r *GameRepository) DeactivateAllForUser(ctx context.Context, userID string) error {
	stmt := `UPDATE games
SET is_active = 0, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE user_id = ? AND is_active = 1`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, userID); err != nil {
		return errors.Wrap(err, "deactivate games", slog.String("user_id", userID))
	}
	return nil
}

func (r *GameRepository) SetStatus(ctx context.Context, id string, status models.GameStatus) error {
	stmt := `UPDATE games
SET status = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?`
	result, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, status, id)
	if err != nil {
		return errors.Wrap(err, "set game status", slog.String("game_id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if affected == 0 {
		return errors.Wrap(ErrNotFound, "set game status", slog.String("game_id", id))
	}
	return nil
}
