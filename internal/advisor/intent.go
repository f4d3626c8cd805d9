package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Intent is the structured result extracted from an advisor reply.
type Intent struct {
	Token  *string `json:"token"`
	Action *string `json:"action"`
}

// ReplyEnvelope is the strict JSON shape the advisor backend must produce.
type ReplyEnvelope struct {
	Intent   Intent `json:"intent"`
	Response string `json:"response"`
}

// TokenID returns the case-normalized token identifier named by the intent,
// or an empty string when the intent names none.
func (i Intent) TokenID() string {
	if i.Token == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*i.Token))
}

// ParseReply parses a raw advisor reply into its envelope. The whole reply
// must be one valid JSON object of the expected shape; free text, markdown
// fences or trailing content are parse failures, not something to salvage.
func ParseReply(content string) (*ReplyEnvelope, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, errors.New("empty reply")
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var envelope ReplyEnvelope
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing content after JSON envelope")
	}
	if envelope.Response == "" {
		return nil, errors.New("envelope has no response text")
	}

	return &envelope, nil
}
