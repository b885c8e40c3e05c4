// Package setup turns a generated game bundle into persisted rows, after checking that
// the bundle describes a playable mystery.
package setup

import (
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"log/slog"
	"strings"
)

// ErrInvalidSetup signals that a generated bundle breaks a structural rule of the game.
// The bundle is rejected whole, never patched into shape.
var ErrInvalidSetup = errors.NewSentinel("invalid game setup")

// Validate checks the structural rules a playable mystery must satisfy: exactly one killer
// who is alive, exactly one victim who is dead, and no duplicate names or clue titles.
func Validate(setup *models.GameSetup) error {
	if strings.TrimSpace(setup.Title) == "" {
		return errors.Wrap(ErrInvalidSetup, "empty title")
	}
	if len(setup.Characters) == 0 {
		return errors.Wrap(ErrInvalidSetup, "no characters")
	}

	var killers, victims []string
	names := make(map[string]bool, len(setup.Characters))
	for _, character := range setup.Characters {
		name := strings.ToLower(strings.TrimSpace(character.Name))
		if name == "" {
			return errors.Wrap(ErrInvalidSetup, "character without name")
		}
		if names[name] {
			return errors.Wrap(ErrInvalidSetup, "duplicate character name", slog.String("name", character.Name))
		}
		names[name] = true
		if !character.LiePolicy.Valid() {
			return errors.Wrap(ErrInvalidSetup, "invalid lie policy",
				slog.String("name", character.Name), slog.String("lie_policy", string(character.LiePolicy)))
		}
		if character.IsKiller {
			killers = append(killers, character.Name)
		}
		if character.IsVictim {
			victims = append(victims, character.Name)
		}
	}
	if len(killers) != 1 {
		return errors.Wrap(ErrInvalidSetup, "exactly one killer required", slog.Int("killers", len(killers)))
	}
	if len(victims) != 1 {
		return errors.Wrap(ErrInvalidSetup, "exactly one victim required", slog.Int("victims", len(victims)))
	}
	if strings.EqualFold(killers[0], victims[0]) {
		return errors.Wrap(ErrInvalidSetup, "killer cannot be the victim", slog.String("name", killers[0]))
	}
	for _, character := range setup.Characters {
		if character.IsVictim && character.IsAlive {
			return errors.Wrap(ErrInvalidSetup, "victim must be dead", slog.String("name", character.Name))
		}
		if character.IsKiller && !character.IsAlive {
			return errors.Wrap(ErrInvalidSetup, "killer must be alive", slog.String("name", character.Name))
		}
	}

	locationNames := make(map[string]bool, len(setup.Locations))
	for _, location := range setup.Locations {
		name := strings.ToLower(strings.TrimSpace(location.Name))
		if name == "" {
			return errors.Wrap(ErrInvalidSetup, "location without name")
		}
		if locationNames[name] {
			return errors.Wrap(ErrInvalidSetup, "duplicate location name", slog.String("name", location.Name))
		}
		locationNames[name] = true
	}

	clueTitles := make(map[string]bool, len(setup.Clues))
	for _, clue := range setup.Clues {
		if err := clue.Validate(); err != nil {
			return errors.Wrap(ErrInvalidSetup, "invalid clue", errors.SlogError(err))
		}
		title := strings.ToLower(strings.TrimSpace(clue.Title))
		if clueTitles[title] {
			return errors.Wrap(ErrInvalidSetup, "duplicate clue title", slog.String("title", clue.Title))
		}
		clueTitles[title] = true
	}

	for _, event := range setup.TimelineEvents {
		if !event.EventType.Valid() {
			return errors.Wrap(ErrInvalidSetup, "invalid event type",
				slog.String("event_type", string(event.EventType)))
		}
	}
	return nil
}

// danglingReferences reports clue locations and event participants that do not resolve to
// a generated entity. These are tolerated with a warning: the model occasionally invents a
// hallway it never described, and that should not scrap an otherwise sound mystery.
func danglingReferences(setup *models.GameSetup) []string {
	characters := make(map[string]bool, len(setup.Characters))
	for _, character := range setup.Characters {
		characters[strings.ToLower(character.Name)] = true
	}
	locations := make(map[string]bool, len(setup.Locations))
	for _, location := range setup.Locations {
		locations[strings.ToLower(location.Name)] = true
	}

	var dangling []string
	for _, clue := range setup.Clues {
		if clue.LocationID != "" && !locations[strings.ToLower(clue.LocationID)] {
			dangling = append(dangling, "clue "+clue.Title+" references unknown location "+clue.LocationID)
		}
	}
	for _, event := range setup.TimelineEvents {
		if event.LocationID != "" && !locations[strings.ToLower(event.LocationID)] {
			dangling = append(dangling, "event references unknown location "+event.LocationID)
		}
		for _, name := range event.CharacterIDs {
			if !characters[strings.ToLower(name)] {
				dangling = append(dangling, "event references unknown character "+name)
			}
		}
	}
	return dangling
}
