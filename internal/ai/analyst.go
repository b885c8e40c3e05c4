package ai

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/sashabaranov/go-openai"
	"log/slog"
)

// Analyst decides which persisted records a finished turn actually changed. It sees a
// snapshot of the current game state so it can avoid proposing duplicates.
type Analyst struct {
	completer Completer
	logger    *slog.Logger
}

func NewAnalyst(completer Completer, logger *slog.Logger) *Analyst {
	return &Analyst{
		completer: completer,
		logger:    logger.With("source", "Analyst"),
	}
}

const analystSystemPrompt = `You are a specialized analyst for murder mystery games. You compare
the current game state with what happened in a player interaction and determine which records
genuinely changed.

WHAT TO LOOK FOR:
- NEW clues discovered (check the state first, the clue may already exist)
- Character status changes (check the current status first)
- Location accessibility changes (check the current state first)
- Important events for the timeline (check whether a similar event already exists)
- Character relationships or conversations worth recording
- Character secrets, personality or motivations revealed during the interaction

RULES:
- Always check the provided state before suggesting an update.
- Never suggest updates for things that already exist.
- Be conservative. When in doubt, do not update.
- Provide clear reasoning for each suggested update.

Respond with a single JSON document and nothing else:
{
  "updates": [
    {
      "table": "characters" | "locations" | "clues" | "timeline_events",
      "action": "insert" | "update" | "delete",
      "data": { partial record; inserts carry the entity's name or title },
      "reasoning": "why this change is needed"
    }
  ],
  "has_changes": boolean,
  "summary": "one sentence describing what changed, or that nothing did"
}`

const analystTaskPrompt = `Analyze this interaction and determine the required updates.

CURRENT GAME STATE:
%s

PLAYER QUERY: %s

GAME MASTER RESPONSE: %s

Examine BOTH the player query and the response:
1. Did the player discover any NEW clues? An existing clue the player sees for the first time
   becomes an update setting is_revealed.
2. Did the player state a theory worth recording? Record it as a timeline event.
3. Did any character's status change?
4. Did any location become accessible or inaccessible?
5. Were any secrets or relationships revealed?

If the interaction was idle conversation with no consequence, return has_changes false and an
empty updates array.`

const maxAnalysisAttempts = 3

// AnalyzeInteraction retries when the model returns something unparsable. The analysis runs
// in the background after the player already has their answer, so a retry costs nothing but
// tokens.
func (a *Analyst) AnalyzeInteraction(
	ctx context.Context,
	stateSnapshot, query, response string,
) (*models.UpdateAnalysis, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: analystSystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf(analystTaskPrompt, stateSnapshot, query, response),
		},
	}
	var lastErr error
	for attempt := 1; attempt <= maxAnalysisAttempts; attempt++ {
		completion, err := a.completer.Complete(ctx, messages)
		if err != nil {
			return nil, errors.Wrap(err, "analyze interaction")
		}
		var analysis models.UpdateAnalysis
		if err := decodePayload(completion, &analysis); err != nil {
			lastErr = err
			a.logger.LogAttrs(ctx, slog.LevelWarn, "unparsable analysis, retrying",
				slog.Int("attempt", attempt), errors.SlogError(err))
			continue
		}
		return &analysis, nil
	}
	return nil, errors.Wrap(lastErr, "analysis attempts exhausted")
}
