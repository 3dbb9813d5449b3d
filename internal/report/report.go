// Package report aggregates session analyses into provider-level
// comparisons and persists the consolidated result.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/lemon07r/vellumaudit/internal/model"
)

// ResultsFilename is the fixed path the consolidated report is written to,
// relative to the working directory.
const ResultsFilename = "results.json"

// Verdict thresholds: a provider must clear reliableThreshold while the
// other sits under unreliableThreshold to be declared the winner.
const (
	reliableThreshold   = 90.0
	unreliableThreshold = 50.0
)

// Verdict is the outcome of a two-provider comparison.
type Verdict int

const (
	// VerdictBothIssues means neither provider cleared the bar.
	VerdictBothIssues Verdict = iota
	// VerdictBothReliable means both providers cleared the bar.
	VerdictBothReliable
	// VerdictNahcrofWins means nahcrof is significantly more reliable.
	VerdictNahcrofWins
	// VerdictChutesWins means chutes is significantly more reliable.
	VerdictChutesWins
)

// Comparison is the derived side-by-side view of the latest analysis per
// known provider. It only exists when both nahcrof and chutes produced a
// stress-test session.
type Comparison struct {
	Nahcrof *model.SessionAnalysis
	Chutes  *model.SessionAnalysis
	Verdict Verdict
}

// ProviderStats summarizes validation effectiveness for one provider
// group across all of its sessions.
type ProviderStats struct {
	Provider        model.Provider
	Sessions        int
	TotalCaught     int
	TotalRecords    int
	CompleteRecords int
}

// CompletenessRatio is complete/total across the group, 0 with no records.
func (s ProviderStats) CompletenessRatio() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.CompleteRecords) / float64(s.TotalRecords)
}

// Report is everything the renderer and the persisted artifact need.
type Report struct {
	// PerSession is true when session paths were supplied explicitly; the
	// comparison reduction only applies to auto-discovered runs.
	PerSession bool
	Analyses   []*model.SessionAnalysis
	Comparison *Comparison
	Groups     []ProviderStats
}

// Build derives the report for the given analyses. perSession selects
// per-session mode (explicit paths, no cross-provider reduction) versus
// comparison mode (auto-discovered sessions reduced to the latest per
// provider).
func Build(analyses []*model.SessionAnalysis, perSession bool) *Report {
	rep := &Report{
		PerSession: perSession,
		Analyses:   analyses,
		Groups:     groupByProvider(analyses),
	}

	if !perSession {
		latest := latestPerProvider(analyses)
		nahcrof := latest[model.ProviderNahcrof]
		chutes := latest[model.ProviderChutes]
		if nahcrof != nil && chutes != nil {
			rep.Comparison = &Comparison{
				Nahcrof: nahcrof,
				Chutes:  chutes,
				Verdict: decideVerdict(nahcrof.SuccessRate(), chutes.SuccessRate()),
			}
		}
	}

	return rep
}

// latestPerProvider reduces each provider's analyses to the most recent
// one. Session directories are named session_<timestamp> with zero-padded
// fields, so the lexicographically greatest basename is the newest run.
func latestPerProvider(analyses []*model.SessionAnalysis) map[model.Provider]*model.SessionAnalysis {
	latest := make(map[model.Provider]*model.SessionAnalysis)
	for _, a := range analyses {
		current, ok := latest[a.Provider]
		if !ok || filepath.Base(a.SessionDir) > filepath.Base(current.SessionDir) {
			latest[a.Provider] = a
		}
	}
	return latest
}

func decideVerdict(nahcrofRate, chutesRate float64) Verdict {
	switch {
	case chutesRate >= reliableThreshold && nahcrofRate < unreliableThreshold:
		return VerdictChutesWins
	case nahcrofRate >= reliableThreshold && chutesRate < unreliableThreshold:
		return VerdictNahcrofWins
	case nahcrofRate >= reliableThreshold && chutesRate >= reliableThreshold:
		return VerdictBothReliable
	default:
		return VerdictBothIssues
	}
}

func groupByProvider(analyses []*model.SessionAnalysis) []ProviderStats {
	byProvider := make(map[model.Provider]*ProviderStats)
	for _, a := range analyses {
		stats, ok := byProvider[a.Provider]
		if !ok {
			stats = &ProviderStats{Provider: a.Provider}
			byProvider[a.Provider] = stats
		}
		stats.Sessions++
		stats.TotalCaught += a.CaughtIncomplete + a.CaughtRefusal
		stats.TotalRecords += a.TotalRecords
		stats.CompleteRecords += a.Complete
	}

	groups := make([]ProviderStats, 0, len(byProvider))
	for _, stats := range byProvider {
		groups = append(groups, *stats)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Provider < groups[j].Provider
	})
	return groups
}

// persistedResults is the single on-disk schema for both modes: a flat
// session list with the provider tagged on each entry.
type persistedResults struct {
	Sessions []*model.SessionAnalysis `json:"sessions"`
}

// Persist writes the consolidated analyses to path as indented JSON. This
// is the one write the tool performs and the one error that is allowed to
// abort a run.
func Persist(path string, analyses []*model.SessionAnalysis) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(persistedResults{Sessions: analyses}); err != nil {
		file.Close()
		return fmt.Errorf("write results file: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}
	return nil
}

// WriteJSON emits the same structure Persist writes, to an arbitrary
// writer, for --format json.
func WriteJSON(w io.Writer, analyses []*model.SessionAnalysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(persistedResults{Sessions: analyses})
}
