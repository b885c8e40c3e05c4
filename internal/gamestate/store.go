package gamestate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
	"strings"
)

var (
	// ErrUnknownTable rejects instructions aimed at tables the store does not manage.
	ErrUnknownTable = errors.NewSentinel("unknown table")
	// ErrUnresolvedTarget rejects updates and deletes whose target row cannot be identified.
	ErrUnresolvedTarget = errors.NewSentinel("unresolved target")
)

// allowedColumns lists the writable columns per managed table. Columns outside
// the list are silently dropped so a confused instruction cannot touch ids,
// foreign keys or timestamps.
var allowedColumns = map[string]map[string]bool{
	"characters": {
		"name": true, "description": true, "personality": true, "lie_policy": true,
		"is_killer": true, "is_alive": true, "is_victim": true, "secrets": true,
		"relationships": true, "observations": true, "metadata": true,
	},
	"locations": {
		"name": true, "description": true, "is_accessible": true,
		"connected_locations": true, "atmosphere": true, "metadata": true,
	},
	"clues": {
		"title": true, "description": true, "location_id": true, "is_revealed": true,
		"discovered_by": true, "discovery_method": true, "significance_level": true,
		"points_to": true, "metadata": true,
	},
	"timeline_events": {
		"event_time": true, "event_description": true, "location_id": true,
		"character_ids": true, "event_type": true, "is_public": true,
		"witness_ids": true, "metadata": true,
	},
}

// dedupColumn names the natural key that makes inserts idempotent per table.
// Timeline events have no natural key and rely on the caller's similarity checks.
var dedupColumn = map[string]string{
	"characters": "name",
	"locations":  "name",
	"clues":      "title",
}

// Apply executes a single reconciliation instruction against the game's rows.
// Inserts that collide with an existing row on the table's natural key are
// converted to updates of that row, so replaying an instruction cannot create
// duplicates. Updates and deletes resolve their target by numeric id when the
// instruction carries one, falling back to the natural key.
func (s *Store) Apply(ctx context.Context, gameID string, instruction models.UpdateInstruction) error {
	if !instruction.Action.Valid() {
		return errors.New(fmt.Sprintf("invalid action %q", instruction.Action))
	}
	columns, ok := allowedColumns[instruction.Table]
	if !ok {
		return errors.Wrap(ErrUnknownTable, "apply instruction", slog.String("table", instruction.Table))
	}

	data := make(map[string]any, len(instruction.Data))
	for column, value := range instruction.Data {
		if columns[column] {
			data[column] = toDBValue(value)
		}
	}

	switch instruction.Action {
	case models.UpdateActionInsert:
		return s.applyInsert(ctx, gameID, instruction.Table, data)
	case models.UpdateActionUpdate:
		return s.applyUpdate(ctx, gameID, instruction.Table, instruction.Data, data)
	case models.UpdateActionDelete:
		return s.applyDelete(ctx, gameID, instruction.Table, instruction.Data)
	}
	return nil
}

func (s *Store) applyInsert(ctx context.Context, gameID, table string, data map[string]any) error {
	if key := dedupColumn[table]; key != "" {
		if keyValue, ok := data[key].(string); ok && keyValue != "" {
			id, err := s.lookupID(ctx, gameID, table, key, keyValue)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if err == nil {
				s.logger.LogAttrs(ctx, slog.LevelInfo, "insert collides with existing row, updating instead",
					slog.String("table", table), slog.String(key, keyValue))
				delete(data, key)
				return s.updateByID(ctx, gameID, table, id, data)
			}
		}
	}

	if len(data) == 0 {
		return errors.New("insert without data")
	}
	data["game_id"] = gameID
	columns := make([]string, 0, len(data))
	for column := range data {
		columns = append(columns, column)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s)", //nolint:gosec // table comes from the whitelist
		table, strings.Join(columns, ", "), strings.Join(columns, ", :"))
	if _, err := s.dbs.ReadWrite.NamedExecContext(ctx, stmt, data); err != nil {
		return errors.Wrap(err, "insert row", slog.String("table", table))
	}
	return nil
}

func (s *Store) applyUpdate(ctx context.Context, gameID, table string, raw, data map[string]any) error {
	id, err := s.resolveTarget(ctx, gameID, table, raw)
	if err != nil {
		return err
	}
	if key := dedupColumn[table]; key != "" {
		// The natural key identified the row, it is not part of the change.
		if _, carriesID := raw["id"]; !carriesID {
			delete(data, key)
		}
	}
	if len(data) == 0 {
		return nil
	}
	return s.updateByID(ctx, gameID, table, id, data)
}

func (s *Store) applyDelete(ctx context.Context, gameID, table string, raw map[string]any) error {
	id, err := s.resolveTarget(ctx, gameID, table, raw)
	if err != nil {
		return err
	}
	// The game_id predicate keeps an id from another game from resolving.
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND game_id = ?", table) //nolint:gosec // table comes from the whitelist
	result, err := s.dbs.ReadWrite.ExecContext(ctx, stmt, id, gameID)
	if err != nil {
		return errors.Wrap(err, "delete row", slog.String("table", table), slog.Int64("id", id))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Wrap(ErrNotFound, "delete row", slog.String("table", table), slog.Int64("id", id))
	}
	return nil
}

func (s *Store) updateByID(ctx context.Context, gameID, table string, id int64, data map[string]any) error {
	assignments := make([]string, 0, len(data))
	for column := range data {
		assignments = append(assignments, column+" = :"+column)
	}
	data["id"] = id
	data["game_id"] = gameID
	// The game_id predicate keeps an id from another game from resolving.
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND game_id = :game_id", //nolint:gosec // table comes from the whitelist
		table, strings.Join(assignments, ", "))
	result, err := s.dbs.ReadWrite.NamedExecContext(ctx, stmt, data)
	if err != nil {
		return errors.Wrap(err, "update row", slog.String("table", table), slog.Int64("id", id))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Wrap(ErrNotFound, "update row", slog.String("table", table), slog.Int64("id", id))
	}
	return nil
}

// resolveTarget finds the row an update or delete refers to. A numeric id in
// the payload wins, otherwise the table's natural key is matched case
// insensitively.
func (s *Store) resolveTarget(ctx context.Context, gameID, table string, raw map[string]any) (int64, error) {
	if rawID, ok := raw["id"]; ok {
		switch id := rawID.(type) {
		case int64:
			return id, nil
		case int:
			return int64(id), nil
		case float64:
			return int64(id), nil
		case json.Number:
			parsed, err := id.Int64()
			if err == nil {
				return parsed, nil
			}
		}
	}
	key := dedupColumn[table]
	if key == "" {
		return 0, errors.Wrap(ErrUnresolvedTarget, "resolve target", slog.String("table", table))
	}
	keyValue, ok := raw[key].(string)
	if !ok || keyValue == "" {
		return 0, errors.Wrap(ErrUnresolvedTarget, "resolve target", slog.String("table", table))
	}
	id, err := s.lookupID(ctx, gameID, table, key, keyValue)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, errors.Wrap(ErrUnresolvedTarget, "resolve target",
				slog.String("table", table), slog.String(key, keyValue))
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) lookupID(ctx context.Context, gameID, table, key, value string) (int64, error) {
	var id int64
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE game_id = ? AND %s = ? COLLATE NOCASE", //nolint:gosec // whitelist
		table, key)
	if err := s.dbs.ReadOnly.GetContext(ctx, &id, stmt, gameID, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "lookup id", slog.String("table", table), slog.String(key, value))
	}
	return id, nil
}

// toDBValue flattens structured values into the JSON text columns expect.
func toDBValue(value any) any {
	switch v := value.(type) {
	case map[string]any, []any, []string:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "{}"
		}
		return string(encoded)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return value
	}
}
