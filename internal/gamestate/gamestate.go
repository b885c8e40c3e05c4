// Package gamestate is the persistence gateway for murder mystery games. Each entity table
// has a typed repository; the Store facade additionally applies table-name-addressed update
// instructions produced by the reconciliation engine.
package gamestate

import (
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/sqlite"
	"log/slog"
)

// ErrNotFound signals that a lookup matched no row. It is a normal outcome for name-based
// retrieval, never an excuse to fabricate data.
var ErrNotFound = errors.NewSentinel("not found")

// Store bundles the repositories over one database.
type Store struct {
	dbs          *sqlite.Database
	logger       *slog.Logger
	Games        *GameRepository
	Characters   *CharacterRepository
	Locations    *LocationRepository
	Clues        *ClueRepository
	Timeline     *TimelineRepository
	Interactions *InteractionRepository
}

func NewStore(dbs *sqlite.Database, logger *slog.Logger) *Store {
	return &Store{
		dbs:          dbs,
		logger:       logger.With("source", "Store"),
		Games:        NewGameRepository(dbs, logger),
		Characters:   NewCharacterRepository(dbs, logger),
		Locations:    NewLocationRepository(dbs, logger),
		Clues:        NewClueRepository(dbs, logger),
		Timeline:     NewTimelineRepository(dbs, logger),
		Interactions: NewInteractionRepository(dbs, logger),
	}
}
