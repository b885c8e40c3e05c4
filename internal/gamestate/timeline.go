package gamestate

import (
	"context"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
)

type TimelineRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewTimelineRepository(dbs *sqlite.Database, logger *slog.Logger) *TimelineRepository {
	return &TimelineRepository{
		dbs:    dbs,
		logger: logger.With("source", "TimelineRepository"),
	}
}

func (r *TimelineRepository) Insert(ctx context.Context, event *models.TimelineEvent) error {
	stmt := `INSERT INTO timeline_events (game_id, event_time, event_description, location_id,
character_ids, event_type, is_public, witness_ids, metadata)
VALUES (:game_id, :event_time, :event_description, :location_id,
:character_ids, :event_type, :is_public, :witness_ids, :metadata)`
	result, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, event)
	if err != nil {
		return errors.Wrap(err, "insert timeline event", slog.String("game_id", event.GameID))
	}
	if event.ID, err = result.LastInsertId(); err != nil {
		return errors.Wrap(err, "last insert id")
	}
	return nil
}

// ListByGame returns the game's events in chronological order. Event times are
// ISO-8601 strings so lexicographic ordering matches time ordering.
func (r *TimelineRepository) ListByGame(ctx context.Context, gameID string) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	stmt := `SELECT id, game_id, event_time, event_description, location_id, character_ids,
event_type, is_public, witness_ids, metadata
FROM timeline_events WHERE game_id = ? ORDER BY event_time, id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &events, stmt, gameID); err != nil {
		return nil, errors.Wrap(err, "list timeline events", slog.String("game_id", gameID))
	}
	return events, nil
}
