package models

// EventType categorizes timeline events.
type EventType string

const (
	EventTypeMurder       EventType = "murder"
	EventTypeDiscovery    EventType = "discovery"
	EventTypeConversation EventType = "conversation"
	EventTypeMovement     EventType = "movement"
	EventTypeGeneral      EventType = "general"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeMurder, EventTypeDiscovery, EventTypeConversation, EventTypeMovement, EventTypeGeneral:
		return true
	}
	return false
}

// TimelineEvent is one entry in a game's chronology.
type TimelineEvent struct {
	ID     int64  `db:"id" json:"id,omitempty"`
	GameID string `db:"game_id" json:"game_id,omitempty"`
	// EventTime is an ISO-8601 timestamp (YYYY-MM-DDTHH:MM:SSZ) so events sort chronologically
	// as plain strings.
	EventTime        string `db:"event_time" json:"event_time"`
	EventDescription string `db:"event_description" json:"event_description"`
	// LocationID is the name of the location where the event happened.
	LocationID string `db:"location_id" json:"location_id"`
	// CharacterIDs lists names of the characters involved.
	CharacterIDs StringList `db:"character_ids" json:"character_ids"`
	EventType    EventType  `db:"event_type" json:"event_type"`
	IsPublic     bool       `db:"is_public" json:"is_public"`
	WitnessIDs   StringList `db:"witness_ids" json:"witness_ids"`
	Metadata     StringMap  `db:"metadata" json:"metadata"`
}
