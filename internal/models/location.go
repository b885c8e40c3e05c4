package models

// Location is a place in the game world. Name is unique within the game.
type Location struct {
	ID           int64  `db:"id" json:"id,omitempty"`
	GameID       string `db:"game_id" json:"game_id,omitempty"`
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	IsAccessible bool   `db:"is_accessible" json:"is_accessible"`
	// ConnectedLocations lists names of locations reachable from here. The store does not
	// enforce that they exist; the initializer warns about dangling references.
	ConnectedLocations StringList `db:"connected_locations" json:"connected_locations"`
	Atmosphere         string     `db:"atmosphere" json:"atmosphere"`
	// Metadata carries loosely structured extras. Known key: "image_url".
	Metadata StringMap `db:"metadata" json:"metadata"`
}
