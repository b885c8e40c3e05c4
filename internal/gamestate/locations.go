package gamestate

import (
	"context"
	"database/sql"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
)

type LocationRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewLocationRepository(dbs *sqlite.Database, logger *slog.Logger) *LocationRepository {
	return &LocationRepository{
		dbs:    dbs,
		logger: logger.With("source", "LocationRepository"),
	}
}

const locationColumns = `id, game_id, name, description, is_accessible, connected_locations, atmosphere, metadata`

func (r *LocationRepository) Insert(ctx context.Context, location *models.Location) error {
	stmt := `INSERT INTO locations (game_id, name, description, is_accessible, connected_locations, atmosphere, metadata)
VALUES (:game_id, :name, :description, :is_accessible, :connected_locations, :atmosphere, :metadata)`
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, location)
	if err != nil {
		return errors.Wrap(err, "insert location",
			slog.String("game_id", location.GameID), slog.String("name", location.Name))
	}
	if location.ID, err = result.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	return nil
}

func (r *LocationRepository) ListByGame(ctx context.Context, gameID string) ([]models.Location, error) {
	var locations []models.Location
	stmt := `SELECT ` + locationColumns + ` FROM locations WHERE game_id = ? ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &locations, stmt, gameID); err != nil {
		return nil, errors.Wrap(err, "list locations", slog.String("game_id", gameID))
	}
	return locations, nil
}

func (r *LocationRepository) GetByName(ctx context.Context, gameID, name string) (*models.Location, error) {
	var location models.Location
	stmt := `SELECT ` + locationColumns + ` FROM locations WHERE game_id = ? AND name = ? COLLATE NOCASE`
	if err := r.dbs.ReadOnly.GetContext(ctx, &location, stmt, gameID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(ErrNotFound, "get location", slog.String("name", name))
		}
		return nil, errors.Wrap(err, "get location", slog.String("name", name))
	}
	return &location, nil
}

// SetImageURL records a generated scene image URL in the location's metadata.
func (r *LocationRepository) SetImageURL(ctx context.Context, id int64, url string) error {
	stmt := `UPDATE locations SET metadata = json_set(metadata, '$.image_url', ?) WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, url, id); err != nil {
		return errors.Wrap(err, "set location image url", slog.Int64("id", id))
	}
	return nil
}
