package ai

import (
	"context"
	"fmt"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/myrjola/whodunnit/internal/models"
	"github.com/sashabaranov/go-openai"
	"strings"
)

// Summarizer compresses older conversation history so the game master prompt stays small.
type Summarizer struct {
	completer Completer
}

func NewSummarizer(completer Completer) *Summarizer {
	return &Summarizer{completer: completer}
}

const summarizerSystemPrompt = `You are an expert in summarizing interaction history for a
murder mystery game. Summarize the recent interactions concisely without missing any important
information on who said what. The summary should be easy to understand and use as context for
later turns. Respond with the summary text only.`

func (s *Summarizer) Summarize(ctx context.Context, interactions []models.Interaction) (string, error) {
	if len(interactions) == 0 {
		return "", nil
	}
	var transcript strings.Builder
	for _, interaction := range interactions {
		fmt.Fprintf(&transcript, "Player: %s\nGame master: %s\n", interaction.UserQuery, interaction.AgentResponse)
	}
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: summarizerSystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: transcript.String(),
		},
	}
	summary, err := s.completer.Complete(ctx, messages)
	if err != nil {
		return "", errors.Wrap(err, "summarize interactions")
	}
	return strings.TrimSpace(summary), nil
}
