// Package model holds the value types shared by the analyzer packages.
package model

// Provider identifies the API backend a session was generated against,
// inferred from the session's config snapshot.
type Provider string

const (
	ProviderNahcrof Provider = "nahcrof"
	ProviderChutes  Provider = "chutes"
	ProviderUnknown Provider = "unknown"
)

// IncompleteSample captures diagnostic detail about one incomplete record.
type IncompleteSample struct {
	Length int    `json:"length"`
	Ending string `json:"ending"`
}

// PipelineSummary holds the counters the generation pipeline logged in its
// terminal "Generation pipeline completed" event.
type PipelineSummary struct {
	TotalPrompts int `json:"total_prompts"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
}

// SessionAnalysis is the reconciled picture of one generation session:
// what landed in dataset.jsonl versus what the pipeline's own validation
// caught and logged before it could become a record.
type SessionAnalysis struct {
	SessionDir string `json:"session_dir"`

	TotalRecords int `json:"total_records"`
	Complete     int `json:"complete"`
	Incomplete   int `json:"incomplete"`
	Empty        int `json:"empty"`

	CaughtIncomplete    int `json:"caught_incomplete"`
	CaughtRefusal       int `json:"caught_refusal"`
	CaughtMissingFinish int `json:"caught_missing_finish"`

	SampleIncomplete []IncompleteSample `json:"sample_incomplete"`

	// LogSummary is present only when the log carried a terminal
	// pipeline-summary event.
	LogSummary *PipelineSummary `json:"log_summary,omitempty"`

	// SkippedDatasetLines and SkippedLogLines count malformed lines that
	// were dropped. Skipping stays silent; the counters exist so the
	// leniency is observable.
	SkippedDatasetLines int `json:"skipped_dataset_lines,omitempty"`
	SkippedLogLines     int `json:"skipped_log_lines,omitempty"`

	Provider Provider `json:"provider"`
}

// TotalAttempts reconstructs how many generation attempts the session made,
// assuming every attempt either became a record or was caught by exactly
// one of the three failure categories. The upstream log carries no
// per-attempt correlation id, so if the pipeline logs more than one
// failure event for the same attempt this over-counts.
func (a *SessionAnalysis) TotalAttempts() int {
	return a.TotalRecords + a.CaughtIncomplete + a.CaughtRefusal + a.CaughtMissingFinish
}

// SuccessRate returns the percentage of attempts that produced a record,
// 0 when no attempts are known.
func (a *SessionAnalysis) SuccessRate() float64 {
	total := a.TotalAttempts()
	if total == 0 {
		return 0
	}
	return float64(a.TotalRecords) / float64(total) * 100
}

// CompletenessRatio returns the share of records classified complete,
// 0 when the session has no records.
func (a *SessionAnalysis) CompletenessRatio() float64 {
	if a.TotalRecords == 0 {
		return 0
	}
	return float64(a.Complete) / float64(a.TotalRecords)
}

// ConfigSnapshot holds display metadata recovered from the session's
// config.toml.bak. Best effort: any field may be zero.
type ConfigSnapshot struct {
	ModelName   string `json:"model_name,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}
