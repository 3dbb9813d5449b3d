// Package record classifies individual training records from a session's
// dataset.jsonl file.
package record

import (
	"encoding/json"
	"strings"
)

// Classification describes the completeness of a record's output text.
type Classification int

const (
	// Unrecognized means no known record shape yielded an output text.
	Unrecognized Classification = iota
	// Empty means the output text is empty after trimming.
	Empty
	// Complete means the output ends with terminal punctuation.
	Complete
	// Incomplete means the output is non-empty but ends mid-thought.
	Incomplete
)

func (c Classification) String() string {
	switch c {
	case Empty:
		return "empty"
	case Complete:
		return "complete"
	case Incomplete:
		return "incomplete"
	default:
		return "unrecognized"
	}
}

// terminalRunes are the characters accepted as a complete ending.
const terminalRunes = `.!?"`

// Extractor attempts to pull the output text out of one decoded record
// shape. It reports false when the record does not match the shape.
type Extractor func(rec map[string]json.RawMessage) (string, bool)

// extractors is tried in order; the first match wins. New historical
// record shapes are supported by appending here.
var extractors = []Extractor{
	extractOutputField,
	extractLastConversationTurn,
}

// extractOutputField handles the flat SFT shape: {"output": "..."}.
func extractOutputField(rec map[string]json.RawMessage) (string, bool) {
	raw, ok := rec["output"]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

// extractLastConversationTurn handles the sharegpt shape:
// {"conversations": [..., {"value": "..."}]}. Only the final turn is
// consulted, and only when it carries a value field.
func extractLastConversationTurn(rec map[string]json.RawMessage) (string, bool) {
	raw, ok := rec["conversations"]
	if !ok {
		return "", false
	}
	var turns []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &turns); err != nil || len(turns) == 0 {
		return "", false
	}
	last := turns[len(turns)-1]
	value, ok := last["value"]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(value, &text); err != nil {
		return "", false
	}
	return text, true
}

// Classify decodes one dataset line and classifies its output text. The
// returned text is trimmed and only meaningful for recognized records.
// Malformed JSON yields Unrecognized: partial writes are tolerated, not
// reported.
func Classify(line []byte) (Classification, string) {
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(line, &rec); err != nil {
		return Unrecognized, ""
	}

	var text string
	matched := false
	for _, extract := range extractors {
		if t, ok := extract(rec); ok {
			text = t
			matched = true
			break
		}
	}
	if !matched {
		return Unrecognized, ""
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Empty, text
	}

	runes := []rune(text)
	if strings.ContainsRune(terminalRunes, runes[len(runes)-1]) {
		return Complete, text
	}
	return Incomplete, text
}

// Ending returns the last n runes of text, the excerpt captured for
// incomplete-output samples.
func Ending(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
