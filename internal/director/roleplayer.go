package director

import "fmt"

// roleplayer decides whose voice answers a turn. A live addressed character speaks in
// first person; everyone else, and every dead character, goes through the narrator.
// The dispatch happens here rather than in the prompt so a dead character cannot be
// talked back to life.
type roleplayer struct{}

const narratorPrompt = `You are the Game Master of a murder mystery game. You narrate the
world and report what the player can observe.

You will be given the full game state. Treat it as your database: never make up characters,
locations, clues or events that are not in it. If you cannot find the information, say so
and do not invent it. Never speak in the first person as any character.`

const characterPrompt = `You are %s, a character in a murder mystery game. Respond in first
person as %s, true to the personality and background recorded in the game state. Your lie
policy is %q: honest characters tell the truth, evasive characters avoid topics, deceptive
characters mislead, pathological characters lie constantly. Keep your secrets hidden unless
there is strong reason to reveal them.

You will be given the full game state. Treat it as your database: never make up characters,
locations, clues or events that are not in it.`

const deadSubjectNote = `

The player is addressing %s, who is dead. State that plainly and answer as the narrator.
Never write in %s's voice.`

const hardRules = `

HARD RULES:
- Never answer direct questions about who the killer is.
- Never include internal identifiers or image URLs in your response.
- If the player has correctly solved the mystery through their own deduction, provide a
  summary of the solved case and end your response with the single word SOLVED.`

func (roleplayer) systemPrompt(b *briefing) string {
	subject := b.subject()
	switch {
	case subject == nil:
		return narratorPrompt + hardRules
	case !subject.IsAlive:
		return narratorPrompt + fmt.Sprintf(deadSubjectNote, subject.Name, subject.Name) + hardRules
	default:
		return fmt.Sprintf(characterPrompt, subject.Name, subject.Name, string(subject.LiePolicy)) + hardRules
	}
}
