package reconcile

import (
	"context"
	"encoding/json"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
	"strings"
)

// snapshot is the game state read once at the start of a reconciliation run. The engine
// filters the analyst's proposals against it instead of re-querying per instruction.
type snapshot struct {
	characters []models.Character
	locations  []models.Location
	clues      []models.Clue
	events     []models.TimelineEvent

	characterIDs map[string]int64
	locationIDs  map[string]int64
	clueIDs      map[string]int64
}

func (e *Engine) takeSnapshot(ctx context.Context, gameID string) (*snapshot, error) {
	attr := slog.String("game_id", gameID)
	characters, err := e.store.Characters.ListByGame(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot characters", attr)
	}
	locations, err := e.store.Locations.ListByGame(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot locations", attr)
	}
	clues, err := e.store.Clues.ListByGame(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot clues", attr)
	}
	events, err := e.store.Timeline.ListByGame(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot timeline", attr)
	}

	s := snapshot{
		characters:   characters,
		locations:    locations,
		clues:        clues,
		events:       events,
		characterIDs: make(map[string]int64, len(characters)),
		locationIDs:  make(map[string]int64, len(locations)),
		clueIDs:      make(map[string]int64, len(clues)),
	}
	for _, character := range characters {
		s.characterIDs[normalize(character.Name)] = character.ID
	}
	for _, location := range locations {
		s.locationIDs[normalize(location.Name)] = location.ID
	}
	for _, clue := range clues {
		s.clueIDs[normalize(clue.Title)] = clue.ID
	}
	return &s, nil
}

// digest serializes the snapshot for the analyst prompt.
func (s *snapshot) digest() string {
	state := map[string]any{
		"characters":      s.characters,
		"locations":       s.locations,
		"clues":           s.clues,
		"timeline_events": s.events,
	}
	encoded, err := json.Marshal(state)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

// asRowID converts the id forms the analyst produces into a row id.
func asRowID(value any) (int64, bool) {
	switch id := value.(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	case float64:
		return int64(id), true
	case json.Number:
		parsed, err := id.Int64()
		return parsed, err == nil
	}
	return 0, false
}

// indexHasID reports whether the id belongs to one of the snapshot's rows.
func indexHasID(index map[string]int64, id int64) bool {
	for _, known := range index {
		if known == id {
			return true
		}
	}
	return false
}

// normalize lowercases and collapses whitespace so "the  Bloody knife" and "Bloody Knife"
// compare equal.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func tokens(text string) map[string]bool {
	set := map[string]bool{}
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?'\"()")
		if token != "" {
			set[token] = true
		}
	}
	return set
}

// similarity is the Jaccard index of the two texts' token sets.
func similarity(a, b string) float64 {
	tokensA, tokensB := tokens(a), tokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	var intersection int
	for token := range tokensA {
		if tokensB[token] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}
