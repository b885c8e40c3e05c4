package gamestate

import (
	"context"
	"database/sql"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
)

type ClueRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewClueRepository(dbs *sqlite.Database, logger *slog.Logger) *ClueRepository {
	return &ClueRepository{
		dbs:    dbs,
		logger: logger.With("source", "ClueRepository"),
	}
}

const clueColumns = `id, game_id, title, description, location_id, is_revealed, discovered_by,
discovery_method, significance_level, points_to, metadata`

func (r *ClueRepository) Insert(ctx context.Context, clue *models.Clue) error {
	stmt := `INSERT INTO clues (game_id, title, description, location_id, is_revealed, discovered_by,
discovery_method, significance_level, points_to, metadata)
VALUES (:game_id, :title, :description, :location_id, :is_revealed, :discovered_by,
:discovery_method, :significance_level, :points_to, :metadata)`
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, clue)
	if err != nil {
		return errors.Wrap(err, "insert clue",
			slog.String("game_id", clue.GameID), slog.String("title", clue.Title))
	}
	if clue.ID, err = result.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	return nil
}

func (r *ClueRepository) ListByGame(ctx context.Context, gameID string) ([]models.Clue, error) {
	var clues []models.Clue
	stmt := `SELECT ` + clueColumns + ` FROM clues WHERE game_id = ? ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &clues, stmt, gameID); err != nil {
		return nil, errors.Wrap(err, "list clues", slog.String("game_id", gameID))
	}
	return clues, nil
}

// ListByLocation returns the clues placed in the named location.
func (r *ClueRepository) ListByLocation(ctx context.Context, gameID, locationName string) ([]models.Clue, error) {
	var clues []models.Clue
	stmt := `SELECT ` + clueColumns + ` FROM clues
WHERE game_id = ? AND location_id = ? COLLATE NOCASE ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &clues, stmt, gameID, locationName); err != nil {
		return nil, errors.Wrap(err, "list clues by location",
			slog.String("game_id", gameID), slog.String("location", locationName))
	}
	return clues, nil
}

func (r *ClueRepository) GetByTitle(ctx context.Context, gameID, title string) (*models.Clue, error) {
	var clue models.Clue
	stmt := `SELECT ` + clueColumns + ` FROM clues WHERE game_id = ? AND title = ? COLLATE NOCASE`
	if err := r.dbs.ReadOnly.GetContext(ctx, &clue, stmt, gameID, title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get clue", slog.String("title", title))
		}
		return nil, errors.Wrap(err, "get clue", slog.String("title", title))
	}
	return &clue, nil
}

// SetImageURL records a generated evidence photo URL in the clue's metadata.
func (r *ClueRepository) SetImageURL(ctx context.Context, id int64, url string) error {
	stmt := `UPDATE clues SET metadata = json_set(metadata, '$.image_url', ?) WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, url, id); err != nil {
		return errors.Wrap(err, "set clue image url", slog.Int64("id", id))
	}
	return nil
}
