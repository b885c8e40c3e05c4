package models

import (
	"github.com/myrjola/whodunnit/internal/errors"
	"log/slog"
)

// DiscoveryMethod enumerates how a clue can be found.
type DiscoveryMethod string

const (
	DiscoveryMethodInvestigation DiscoveryMethod = "investigation"
	DiscoveryMethodWitness       DiscoveryMethod = "witness"
	DiscoveryMethodForensics     DiscoveryMethod = "forensics"
	DiscoveryMethodConfession    DiscoveryMethod = "confession"
	DiscoveryMethodAccident      DiscoveryMethod = "accident"
)

func (m DiscoveryMethod) Valid() bool {
	switch m {
	case DiscoveryMethodInvestigation, DiscoveryMethodWitness, DiscoveryMethodForensics,
		DiscoveryMethodConfession, DiscoveryMethodAccident:
		return true
	}
	return false
}

const (
	// MinSignificance is the least important clue level.
	MinSignificance = 1
	// MaxSignificance marks a crucial clue.
	MaxSignificance = 5
)

// Clue is a piece of evidence. Title is unique within the game and serves as the
// deduplication key during reconciliation.
type Clue struct {
	ID          int64  `db:"id" json:"id,omitempty"`
	GameID      string `db:"game_id" json:"game_id,omitempty"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	// LocationID is the name of the location where the clue is found.
	LocationID string `db:"location_id" json:"location_id"`
	IsRevealed bool   `db:"is_revealed" json:"is_revealed"`
	// DiscoveredBy is the name of the discovering character, empty when undiscovered.
	DiscoveredBy      string          `db:"discovered_by" json:"discovered_by"`
	DiscoveryMethod   DiscoveryMethod `db:"discovery_method" json:"discovery_method"`
	SignificanceLevel int             `db:"significance_level" json:"significance_level"`
	// PointsTo lists names of characters this clue implicates.
	PointsTo StringList `db:"points_to" json:"points_to"`
	// Metadata carries loosely structured extras. Known key: "image_url".
	Metadata StringMap `db:"metadata" json:"metadata"`
}

// Validate checks the clue's enum and range contracts.
func (c Clue) Validate() error {
	if c.Title == "" {
		return errors.New("clue title must not be empty")
	}
	if !c.DiscoveryMethod.Valid() {
		return errors.New("invalid discovery method",
			slog.String("title", c.Title), slog.String("discovery_method", string(c.DiscoveryMethod)))
	}
	if c.SignificanceLevel < MinSignificance || c.SignificanceLevel > MaxSignificance {
		return errors.New("significance level out of range",
			slog.String("title", c.Title), slog.Int("significance_level", c.SignificanceLevel))
	}
	return nil
}
