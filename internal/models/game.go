package models

// GameStatus tracks where a game is in its lifecycle.
type GameStatus string

const (
	// GameStatusCastReady means the cast has been generated but play has not started.
	GameStatusCastReady GameStatus = "CAST_READY"
	// GameStatusActive means the game is being played.
	GameStatusActive GameStatus = "ACTIVE"
	// GameStatusSolved means the player has identified the killer.
	GameStatusSolved GameStatus = "SOLVED"
)

func (s GameStatus) Valid() bool {
	switch s {
	case GameStatusCastReady, GameStatusActive, GameStatusSolved:
		return true
	}
	return false
}

// Game is one murder mystery instance. At most one game per user has IsActive set.
type Game struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Status         GameStatus `db:"status" json:"status"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	OpeningSummary string     `db:"opening_summary" json:"opening_summary"`
	CreatedAt      string     `db:"created_at" json:"created_at"`
	UpdatedAt      string     `db:"updated_at" json:"updated_at"`
}
