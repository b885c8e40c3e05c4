// Package reconcile keeps the persisted game state consistent with what the fiction says
// happened. After each turn an analyst model proposes updates; the engine distrusts them,
// filters out duplicates and protected fields, and applies the rest.
package reconcile

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/broker"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
)

// analyzer is the slice of the oracle the engine needs.
type analyzer interface {
	AnalyzeInteraction(ctx context.Context, stateSnapshot, query, response string) (*models.UpdateAnalysis, error)
}

// Notice is broadcast on the update feed after a run changes persisted state.
type Notice struct {
	GameID  string `json:"game_id"`
	Summary string `json:"summary"`
	Applied int    `json:"applied"`
}

type Engine struct {
	store   *gamestate.Store
	analyst analyzer
	feed    *broker.UpdateFeed[string, Notice]
	logger  *slog.Logger
}

func NewEngine(
	store *gamestate.Store,
	analyst analyzer,
	feed *broker.UpdateFeed[string, Notice],
	logger *slog.Logger,
) *Engine {
	return &Engine{
		store:   store,
		analyst: analyst,
		feed:    feed,
		logger:  logger.With("source", "Engine"),
	}
}

// eventSimilarityThreshold drops proposed timeline events that restate an existing one.
const eventSimilarityThreshold = 0.6

// Run reconciles one finished turn. It never returns an error: the player already has
// their answer, so a failed reconciliation is logged and abandoned rather than surfaced.
func (e *Engine) Run(ctx context.Context, gameID, query, response string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.LogAttrs(ctx, slog.LevelError, "reconciliation panicked",
				slog.String("game_id", gameID), slog.String("panic", fmt.Sprint(recovered)))
		}
	}()
	attr := slog.String("game_id", gameID)

	current, err := e.takeSnapshot(ctx, gameID)
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "snapshot failed", attr, errors.SlogError(err))
		return
	}
	analysis, err := e.analyst.AnalyzeInteraction(ctx, current.digest(), query, response)
	if err != nil {
		e.logger.LogAttrs(ctx, slog.LevelError, "analysis failed", attr, errors.SlogError(err))
		return
	}
	if !analysis.HasChanges && len(analysis.Updates) == 0 {
		e.logger.LogAttrs(ctx, slog.LevelDebug, "no changes", attr)
		return
	}

	var applied int
	for _, proposed := range analysis.Updates {
		instruction, keep := e.vet(ctx, gameID, current, proposed)
		if !keep {
			continue
		}
		if err := e.store.Apply(ctx, gameID, instruction); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "instruction failed", attr,
				slog.String("table", instruction.Table), slog.String("action", string(instruction.Action)),
				errors.SlogError(err))
			continue
		}
		applied++
		e.logger.LogAttrs(ctx, slog.LevelInfo, "state updated", attr,
			slog.String("table", instruction.Table), slog.String("action", string(instruction.Action)),
			slog.String("reasoning", instruction.Reasoning))
	}

	if applied > 0 && e.feed != nil {
		e.feed.Publish(gameID, Notice{GameID: gameID, Summary: analysis.Summary, Applied: applied})
	}
}

// vet applies the conservatism rules to one proposed instruction. It may rewrite the
// instruction (an insert that duplicates an existing row becomes an update) or reject it
// outright. The zero instruction with keep false means drop.
func (e *Engine) vet(
	ctx context.Context,
	gameID string,
	current *snapshot,
	proposed models.UpdateInstruction,
) (models.UpdateInstruction, bool) {
	attr := slog.String("game_id", gameID)
	if !proposed.Action.Valid() {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "invalid action dropped", attr,
			slog.String("action", string(proposed.Action)))
		return models.UpdateInstruction{}, false
	}
	if proposed.Data == nil {
		proposed.Data = map[string]any{}
	}

	switch proposed.Table {
	case "characters":
		// The solution is fixed at generation time. No turn may reassign guilt.
		delete(proposed.Data, "is_killer")
		delete(proposed.Data, "is_victim")
		return e.vetKeyed(ctx, current.characterIDs, "name", proposed, attr)
	case "locations":
		return e.vetKeyed(ctx, current.locationIDs, "name", proposed, attr)
	case "clues":
		return e.vetKeyed(ctx, current.clueIDs, "title", proposed, attr)
	case "timeline_events":
		return e.vetEvent(ctx, current, proposed, attr)
	default:
		e.logger.LogAttrs(ctx, slog.LevelWarn, "unknown table dropped", attr,
			slog.String("table", proposed.Table))
		return models.UpdateInstruction{}, false
	}
}

// vetKeyed handles the tables with a natural key. Inserts that collide with a known row
// become updates of that row; updates and deletes must resolve to a known row.
func (e *Engine) vetKeyed(
	ctx context.Context,
	index map[string]int64,
	key string,
	proposed models.UpdateInstruction,
	attr slog.Attr,
) (models.UpdateInstruction, bool) {
	keyValue, _ := proposed.Data[key].(string)
	id, known := index[normalize(keyValue)]

	switch proposed.Action {
	case models.UpdateActionInsert:
		if keyValue == "" {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "insert without key dropped", attr,
				slog.String("table", proposed.Table))
			return models.UpdateInstruction{}, false
		}
		if known {
			proposed.Action = models.UpdateActionUpdate
			proposed.Data["id"] = id
			delete(proposed.Data, key)
			if len(proposed.Data) == 1 {
				// Nothing left but the id, the row already says all of this.
				e.logger.LogAttrs(ctx, slog.LevelDebug, "duplicate insert dropped", attr,
					slog.String("table", proposed.Table), slog.String(key, keyValue))
				return models.UpdateInstruction{}, false
			}
		}
		return proposed, true
	case models.UpdateActionUpdate, models.UpdateActionDelete:
		if raw, carriesID := proposed.Data["id"]; carriesID {
			// Only ids read from this game's snapshot are trusted. Anything else
			// could name another game's row and falls back to the natural key.
			if id, ok := asRowID(raw); ok && indexHasID(index, id) {
				return proposed, true
			}
			delete(proposed.Data, "id")
		}
		if !known {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "unresolvable target dropped", attr,
				slog.String("table", proposed.Table), slog.String(key, keyValue))
			return models.UpdateInstruction{}, false
		}
		proposed.Data["id"] = id
		return proposed, true
	}
	return models.UpdateInstruction{}, false
}

// vetEvent drops proposed timeline events that restate one already recorded.
func (e *Engine) vetEvent(
	ctx context.Context,
	current *snapshot,
	proposed models.UpdateInstruction,
	attr slog.Attr,
) (models.UpdateInstruction, bool) {
	if proposed.Action != models.UpdateActionInsert {
		// Events are append-only from the engine's point of view. The analyst has no
		// stable handle on them, so mutations are rejected.
		e.logger.LogAttrs(ctx, slog.LevelWarn, "timeline mutation dropped", attr,
			slog.String("action", string(proposed.Action)))
		return models.UpdateInstruction{}, false
	}
	description, _ := proposed.Data["event_description"].(string)
	if description == "" {
		e.logger.LogAttrs(ctx, slog.LevelWarn, "event without description dropped", attr)
		return models.UpdateInstruction{}, false
	}
	for _, event := range current.events {
		if similarity(description, event.EventDescription) >= eventSimilarityThreshold {
			e.logger.LogAttrs(ctx, slog.LevelDebug, "similar event dropped", attr,
				slog.String("proposed", description),
				slog.String("existing", event.EventDescription))
			return models.UpdateInstruction{}, false
		}
	}
	return proposed, true
}
