package models

// LiePolicy is a character's disposition toward truth-telling under player questioning.
type LiePolicy string

const (
	LiePolicyHonest       LiePolicy = "honest"
	LiePolicyEvasive      LiePolicy = "evasive"
	LiePolicyDeceptive    LiePolicy = "deceptive"
	LiePolicyPathological LiePolicy = "pathological"
)

func (p LiePolicy) Valid() bool {
	switch p {
	case LiePolicyHonest, LiePolicyEvasive, LiePolicyDeceptive, LiePolicyPathological:
		return true
	}
	return false
}

// Character is a cast member of one game. Name is unique within the game and is how the
// oracle refers to the character; the integer ID is the persisted key used for mutations.
type Character struct {
	ID          int64     `db:"id" json:"id,omitempty"`
	GameID      string    `db:"game_id" json:"game_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Personality StringMap `db:"personality" json:"personality"`
	LiePolicy   LiePolicy `db:"lie_policy" json:"lie_policy"`
	IsKiller    bool      `db:"is_killer" json:"is_killer"`
	IsAlive     bool      `db:"is_alive" json:"is_alive"`
	IsVictim    bool      `db:"is_victim" json:"is_victim"`
	Secrets     StringList `db:"secrets" json:"secrets"`
	// Relationships maps another character's name to a description of the relationship.
	Relationships StringMap `db:"relationships" json:"relationships"`
	Observations  StringMap `db:"observations" json:"observations"`
	// Metadata carries loosely structured extras. Known key: "image_url".
	Metadata StringMap `db:"metadata" json:"metadata"`
}
