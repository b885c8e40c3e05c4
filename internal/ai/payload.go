package ai

import (
	"encoding/json"
	"github.com/myrjola/whodunnit/internal/errors"
	"strings"
)

// ErrNoPayload signals that a completion carried no parseable JSON document.
var ErrNoPayload = errors.NewSentinel("no JSON payload in completion")

// decodePayload extracts the JSON document from a completion and unmarshals it into dst.
// Models wrap their output unpredictably: sometimes a bare document, sometimes a fenced
// code block, sometimes prose around a braced object. We take the outermost braces.
func decodePayload(completion string, dst any) error {
	payload := extractJSON(completion)
	if payload == "" {
		return errors.Wrap(ErrNoPayload, "decode payload")
	}
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		return errors.Wrap(err, "unmarshal payload")
	}
	return nil
}

func extractJSON(completion string) string {
	text := completion
	if start := strings.Index(text, "```json"); start != -1 {
		text = text[start+len("```json"):]
	} else if start := strings.Index(text, "```"); start != -1 {
		text = text[start+len("```"):]
	}
	if end := strings.Index(text, "```"); end != -1 {
		text = text[:end]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
