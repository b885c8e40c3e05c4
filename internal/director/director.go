// Package director runs player turns: a retriever reads everything the turn needs from
// the game state, a roleplayer picks the voice, and the director enforces the table rules
// the model cannot be trusted with on its own.
package director

import (
	"context"
	"github.com/myrjola/whodunnit/internal/ai"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/gamestate"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/sashabaranov/go-openai"
	"log/slog"
	"strings"
)

// summarizer compresses interactions that no longer fit the history window.
type summarizer interface {
	Summarize(ctx context.Context, interactions []models.Interaction) (string, error)
}

// Reply is the outcome of one player turn.
type Reply struct {
	Text   string `json:"response"`
	Solved bool   `json:"solved"`
}

type Director struct {
	store         *gamestate.Store
	completer     ai.Completer
	summarizer    summarizer
	retriever     retriever
	voice         roleplayer
	historyWindow int
	logger        *slog.Logger
}

func NewDirector(
	store *gamestate.Store,
	completer ai.Completer,
	summarizer summarizer,
	historyWindow int,
	logger *slog.Logger,
) *Director {
	return &Director{
		store:         store,
		completer:     completer,
		summarizer:    summarizer,
		retriever:     retriever{store: store},
		voice:         roleplayer{},
		historyWindow: historyWindow,
		logger:        logger.With("source", "Director"),
	}
}

// solvedMarker ends a response when the game master judges the mystery solved.
const solvedMarker = "SOLVED"

// HandleQuery runs one player turn and appends it to the interaction log. The returned
// reply is already scrubbed of internal identifiers.
func (d *Director) HandleQuery(ctx context.Context, gameID, query string) (*Reply, error) {
	game, err := d.store.Games.Get(ctx, gameID)
	if err != nil {
		return nil, errors.Wrap(err, "load game", slog.String("game_id", gameID))
	}

	brief, err := d.retriever.assemble(ctx, game, query)
	if err != nil {
		return nil, err
	}
	state, err := brief.stateJSON()
	if err != nil {
		return nil, err
	}
	history, err := d.conversationHistory(ctx, gameID)
	if err != nil {
		return nil, err
	}

	voice := "narrator"
	if subject := brief.subject(); subject != nil && subject.IsAlive {
		voice = subject.Name
	}
	d.logger.LogAttrs(ctx, slog.LevelDebug, "turn dispatched",
		slog.String("game_id", gameID), slog.String("voice", voice))

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: d.voice.systemPrompt(brief) + "\n\nGAME STATE:\n" + state,
	})
	messages = append(messages, history...)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	})

	completion, err := d.completer.Complete(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "game master completion", slog.String("game_id", gameID))
	}

	text, solved := extractSolved(completion)
	text = scrub(text, gameID, brief.imageURLs)

	if solved && game.Status != models.GameStatusSolved {
		if err := d.store.Games.SetStatus(ctx, gameID, models.GameStatusSolved); err != nil {
			return nil, errors.Wrap(err, "mark game solved", slog.String("game_id", gameID))
		}
		d.logger.LogAttrs(ctx, slog.LevelInfo, "game solved", slog.String("game_id", gameID))
	}

	interaction := &models.Interaction{
		GameID:        gameID,
		UserQuery:     query,
		AgentResponse: text,
	}
	if err := d.store.Interactions.Append(ctx, interaction); err != nil {
		return nil, errors.Wrap(err, "append interaction", slog.String("game_id", gameID))
	}

	return &Reply{Text: text, Solved: solved}, nil
}

// recentFetchFactor bounds how far back conversationHistory reads. Turns older than a few
// windows have aged out of the prompt entirely.
const recentFetchFactor = 4

// conversationHistory returns the recent turns as chat messages. Older turns beyond the
// window are folded into a single summary message so the prompt stays bounded.
func (d *Director) conversationHistory(ctx context.Context, gameID string) ([]openai.ChatCompletionMessage, error) {
	interactions, err := d.store.Interactions.ListRecent(ctx, gameID, d.historyWindow*recentFetchFactor)
	if err != nil {
		return nil, errors.Wrap(err, "load history", slog.String("game_id", gameID))
	}

	var messages []openai.ChatCompletionMessage
	recent := interactions
	if len(interactions) > d.historyWindow {
		older := interactions[:len(interactions)-d.historyWindow]
		recent = interactions[len(interactions)-d.historyWindow:]
		summary, err := d.summarizer.Summarize(ctx, older)
		if err != nil {
			// A missing summary degrades context, it does not block the turn.
			d.logger.LogAttrs(ctx, slog.LevelWarn, "history summarization failed",
				slog.String("game_id", gameID), errors.SlogError(err))
		} else if summary != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Summary of the earlier conversation: " + summary,
			})
		}
	}
	for _, interaction := range recent {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: interaction.UserQuery},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: interaction.AgentResponse},
		)
	}
	return messages, nil
}

// extractSolved checks whether the response ends with the solved marker and strips it.
func extractSolved(completion string) (string, bool) {
	text := strings.TrimSpace(completion)
	trimmed := strings.TrimRight(text, ".!? \n")
	if !strings.HasSuffix(trimmed, solvedMarker) {
		return text, false
	}
	rest := strings.TrimSuffix(trimmed, solvedMarker)
	if rest != "" && !strings.HasSuffix(rest, " ") && !strings.HasSuffix(rest, "\n") {
		// The marker must stand alone, "UNSOLVED" does not count.
		return text, false
	}
	return strings.TrimSpace(rest), true
}

// scrub removes internal identifiers and stored image URLs from a response.
func scrub(text, gameID string, imageURLs []string) string {
	text = strings.ReplaceAll(text, gameID, "")
	for _, url := range imageURLs {
		text = strings.ReplaceAll(text, url, "")
	}
	return strings.TrimSpace(text)
}
