package ai

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/sashabaranov/go-openai"
)

// GameBuilder asks the model for a complete cast, setting, evidence and timeline for a
// new mystery.
type GameBuilder struct {
	completer Completer
}

func NewGameBuilder(completer Completer) *GameBuilder {
	return &GameBuilder{completer: completer}
}

const gameBuilderSystemPrompt = `You are a master storyteller and game designer specializing in
murder mystery games. You create intricate plots with believable characters, each with their own
motives, secrets, and alibis. You design atmospheric locations that enhance the mystery, and you
craft clues that lead players through a logical but challenging investigation.

Respond with a single JSON document and nothing else. The document has these fields:
  title            string
  description      string
  opening_summary  string, the scene-setting text shown to the player at the start
  characters       array of {name, description, personality (object), lie_policy,
                   is_killer, is_alive, is_victim, secrets (array of strings),
                   relationships (object mapping character name to relationship)}
  locations        array of {name, description, is_accessible, connected_locations
                   (array of location names), atmosphere}
  clues            array of {title, description, location_id (a location name),
                   is_revealed, discovered_by, discovery_method, significance_level}
  timeline_events  array of {event_time (ISO-8601 YYYY-MM-DDTHH:MM:SSZ), event_description,
                   location_id (a location name), character_ids (array of character names),
                   event_type, is_public, witness_ids (array of character names)}`

const gameBuilderTaskPrompt = `Create a complete murder mystery game.

GAME DETAILS:
- Title: %s
- Setting description: %s
- Character count: %d

REQUIREMENTS:
1. Create %d unique characters with distinct personalities, backgrounds and motives. The victim
   counts toward the character total and appears in the characters list with is_victim true and
   is_alive false.
2. Designate exactly ONE character as the killer (is_killer true). The killer is alive and is
   not the victim.
3. Create 5-8 atmospheric locations that fit the setting.
4. Generate 5-7 clues of varying importance (significance_level 1-5). Mix crucial clues (4-5)
   with minor ones (1-2), use different discovery methods (investigation, witness, forensics,
   confession, accident), and make clues point to multiple characters for red herrings.
5. Create a chronological timeline of events leading to and including the murder, plus the
   discovery of the body. Use realistic ISO-8601 timestamps and do not duplicate events.
6. Each character gets exactly one lie_policy: honest, evasive, deceptive, or pathological.
7. Relationships must mention characters by name, not by role.`

func (b *GameBuilder) BuildGame(ctx context.Context, title, description string, characterCount int) (*models.GameSetup, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: gameBuilderSystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(gameBuilderTaskPrompt, title, description, characterCount, characterCount),
		},
	}
	completion, err := b.completer.Complete(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "build game")
	}
	var setup models.GameSetup
	if err := decodePayload(completion, &setup); err != nil {
		return nil, errors.Wrap(err, "decode game setup")
	}
	return &setup, nil
}
