package models

// GameSetup is the full generated bundle for one game, as produced by the generation oracle.
// The JSON field names are part of the oracle's output contract.
type GameSetup struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Characters     []Character     `json:"characters"`
	Locations      []Location      `json:"locations"`
	Clues          []Clue          `json:"clues"`
	TimelineEvents []TimelineEvent `json:"timeline_events"`
	OpeningSummary string          `json:"opening_summary"`
}

// SetupCounts summarizes how much content a setup contains.
type SetupCounts struct {
	Characters     int `json:"characters"`
	Locations      int `json:"locations"`
	Clues          int `json:"clues"`
	TimelineEvents int `json:"timeline_events"`
}

// Counts tallies the setup's entities.
func (s GameSetup) Counts() SetupCounts {
	return SetupCounts{
		Characters:     len(s.Characters),
		Locations:      len(s.Locations),
		Clues:          len(s.Clues),
		TimelineEvents: len(s.TimelineEvents),
	}
}
