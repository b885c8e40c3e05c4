package director

import (
	"context"
	"encoding/json"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
	"strings"
)

// retriever is the data specialist of a turn. It owns every read the game master needs
// and never writes: it resolves which character the query addresses, pulls up the clues
// the query points at, and packages the rest of the world for the prompt.
type retriever struct {
	store *gamestate.Store
}

// briefing is one turn's worth of retrieved state.
type briefing struct {
	game       *models.Game
	characters []models.Character
	locations  []models.Location
	clues      []models.Clue
	events     []models.TimelineEvent

	// subjects are the characters the query addresses, best match first.
	subjects []models.Character
	// focusClues are pulled up because the query names their location or their title.
	focusClues []models.Clue
	// imageURLs is every stored URL, for the scrubber.
	imageURLs []string
}

func (r retriever) assemble(ctx context.Context, game *models.Game, query string) (*briefing, error) {
	gameID := slog.String("game_id", game.ID)
	characters, err := r.store.Characters.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load characters", gameID)
	}
	locations, err := r.store.Locations.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load locations", gameID)
	}
	clues, err := r.store.Clues.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load clues", gameID)
	}
	events, err := r.store.Timeline.ListByGame(ctx, game.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load timeline", gameID)
	}

	b := &briefing{
		game:       game,
		characters: characters,
		locations:  locations,
		clues:      clues,
		events:     events,
	}
	for _, character := range characters {
		if url := character.Metadata["image_url"]; url != "" {
			b.imageURLs = append(b.imageURLs, url)
		}
	}
	for _, location := range locations {
		if url := location.Metadata["image_url"]; url != "" {
			b.imageURLs = append(b.imageURLs, url)
		}
	}
	for _, clue := range clues {
		if url := clue.Metadata["image_url"]; url != "" {
			b.imageURLs = append(b.imageURLs, url)
		}
	}

	if b.subjects, err = r.store.Characters.Search(ctx, game.ID, query); err != nil {
		return nil, errors.Wrap(err, "resolve subjects", gameID)
	}
	if err = r.focusClues(ctx, game.ID, query, b); err != nil {
		return nil, err
	}
	return b, nil
}

// focusClues pulls the clues the query points at: everything found in a mentioned
// location, plus any clue mentioned by title.
func (r retriever) focusClues(ctx context.Context, gameID, query string, b *briefing) error {
	lowered := strings.ToLower(query)
	seen := make(map[int64]bool)
	for _, location := range b.locations {
		if !strings.Contains(lowered, strings.ToLower(location.Name)) {
			continue
		}
		clues, err := r.store.Clues.ListByLocation(ctx, gameID, location.Name)
		if err != nil {
			return errors.Wrap(err, "focus location clues",
				slog.String("game_id", gameID), slog.String("location", location.Name))
		}
		for _, clue := range clues {
			if !seen[clue.ID] {
				seen[clue.ID] = true
				b.focusClues = append(b.focusClues, clue)
			}
		}
	}
	for _, clue := range b.clues {
		if !seen[clue.ID] && strings.Contains(lowered, strings.ToLower(clue.Title)) {
			seen[clue.ID] = true
			b.focusClues = append(b.focusClues, clue)
		}
	}
	return nil
}

// subject is the character the turn addresses, nil when the query names nobody.
func (b *briefing) subject() *models.Character {
	if len(b.subjects) == 0 {
		return nil
	}
	return &b.subjects[0]
}

// dossier is the briefing serialized into the game master prompt. Characters keep their
// secrets here; the system prompt governs what reaches the player.
type dossier struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	OpeningSummary string                 `json:"opening_summary"`
	Characters     []models.Character     `json:"characters"`
	Locations      []models.Location      `json:"locations"`
	Clues          []models.Clue          `json:"clues"`
	TimelineEvents []models.TimelineEvent `json:"timeline_events"`
	Focus          *focus                 `json:"focus,omitempty"`
}

// focus highlights what the current query is about.
type focus struct {
	Subjects []string      `json:"subjects,omitempty"`
	Clues    []models.Clue `json:"clues,omitempty"`
}

func (b *briefing) stateJSON() (string, error) {
	d := dossier{
		Title:          b.game.Title,
		Description:    b.game.Description,
		OpeningSummary: b.game.OpeningSummary,
		Characters:     b.characters,
		Locations:      b.locations,
		Clues:          b.clues,
		TimelineEvents: b.events,
	}
	if len(b.subjects) > 0 || len(b.focusClues) > 0 {
		d.Focus = &focus{Clues: b.focusClues}
		for _, subject := range b.subjects {
			d.Focus.Subjects = append(d.Focus.Subjects, subject.Name)
		}
	}
	encoded, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "marshal briefing", slog.String("game_id", b.game.ID))
	}
	return string(encoded), nil
}
