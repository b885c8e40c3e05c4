package models

// Interaction is one player turn: the query and the game master's reply. The table is an
// append-only log that doubles as conversation history.
type Interaction struct {
	ID            int64  `db:"id" json:"id"`
	GameID        string `db:"game_id" json:"game_id"`
	UserQuery     string `db:"user_query" json:"user_query"`
	AgentResponse string `db:"agent_response" json:"agent_response"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}
