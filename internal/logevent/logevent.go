// Package logevent classifies structured log lines from a session's
// session.log file. The log is slog JSON output from the generation
// pipeline: every line carries at least a level and a message, and the
// terminal pipeline-summary event additionally carries run counters.
package logevent

import (
	"encoding/json"
	"strings"

	"github.com/lemon07r/vellumaudit/internal/model"
)

// Severity levels as the pipeline writes them.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Tag marks what a log event signals about the run.
type Tag int

const (
	// None means the event carries no signal this analyzer cares about.
	None Tag = iota
	// CaughtIncomplete marks an output rejected as cut off mid-generation.
	CaughtIncomplete
	// CaughtMissingFinish marks a response rejected for an invalid or
	// missing finish_reason.
	CaughtMissingFinish
	// CaughtRefusal marks a chosen response rejected as a model refusal.
	CaughtRefusal
)

// The message vocabulary the pipeline's validation layer emits. Matching
// is substring-based because the messages carry per-job context after the
// fixed prefix.
const (
	msgIncomplete      = "Incomplete output detected"
	msgInvalidFinish   = "Invalid finish_reason"
	msgChosenResponse  = "Chosen response"
	msgRefusedLower    = "refused"
	msgPipelineSummary = "Generation pipeline completed"
)

type envelope struct {
	Level        string `json:"level"`
	Msg          string `json:"msg"`
	TotalPrompts int    `json:"total_prompts"`
	Successful   int    `json:"successful"`
	Failed       int    `json:"failed"`
}

// Classify inspects one log line. It returns the failure tag the event
// carries (None for most lines) and, for the terminal pipeline-summary
// event, the logged run counters. Malformed JSON lines yield (None, nil)
// and ok=false so callers can count the leniency.
func Classify(line []byte) (tag Tag, summary *model.PipelineSummary, ok bool) {
	var ev envelope
	if err := json.Unmarshal(line, &ev); err != nil {
		return None, nil, false
	}

	if ev.Level == LevelWarn || ev.Level == LevelError {
		tag = matchFailure(ev.Msg)
	}

	// The summary event is matched on the exact message regardless of
	// severity; when the log holds several, the last one wins upstream.
	if ev.Msg == msgPipelineSummary {
		summary = &model.PipelineSummary{
			TotalPrompts: ev.TotalPrompts,
			Successful:   ev.Successful,
			Failed:       ev.Failed,
		}
	}

	return tag, summary, true
}

// matchFailure maps a WARN/ERROR message to a failure category. The
// matchers mirror the pipeline's validation order and are first-match-wins,
// so a single event never lands in two categories.
func matchFailure(msg string) Tag {
	switch {
	case strings.Contains(msg, msgIncomplete):
		return CaughtIncomplete
	case strings.Contains(msg, msgInvalidFinish):
		return CaughtMissingFinish
	case strings.Contains(strings.ToLower(msg), msgRefusedLower) && strings.Contains(msg, msgChosenResponse):
		return CaughtRefusal
	default:
		return None
	}
}
