package models

// UpdateAction enumerates the mutations the reconciliation engine can request.
type UpdateAction string

const (
	UpdateActionInsert UpdateAction = "insert"
	UpdateActionUpdate UpdateAction = "update"
	UpdateActionDelete UpdateAction = "delete"
)

func (a UpdateAction) Valid() bool {
	switch a {
	case UpdateActionInsert, UpdateActionUpdate, UpdateActionDelete:
		return true
	}
	return false
}

// UpdateInstruction is a single requested mutation against one of the entity tables. It is
// ephemeral: generated, applied, and discarded within one turn. Only its effects persist.
type UpdateInstruction struct {
	// Table is one of "characters", "locations", "clues", or "timeline_events".
	Table  string       `json:"table"`
	Action UpdateAction `json:"action"`
	// Data is a partial record. Inserts must carry the entity's name or title; updates and
	// deletes carry the persisted "id" once the engine has resolved the target.
	Data map[string]any `json:"data"`
	// Reasoning is for the audit log only. It never participates in application.
	Reasoning string `json:"reasoning"`
}

// UpdateAnalysis is the oracle's verdict on what a turn changed.
type UpdateAnalysis struct {
	Updates    []UpdateInstruction `json:"updates"`
	HasChanges bool                `json:"has_changes"`
	Summary    string              `json:"summary"`
}
