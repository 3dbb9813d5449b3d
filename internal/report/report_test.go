package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lemon07r/vellumaudit/internal/model"
)

func analysisFor(provider model.Provider, sessionName string, records, caught int) *model.SessionAnalysis {
	return &model.SessionAnalysis{
		SessionDir:       filepath.Join("output", sessionName),
		TotalRecords:     records,
		Complete:         records,
		CaughtIncomplete: caught,
		SampleIncomplete: []model.IncompleteSample{},
		Provider:         provider,
	}
}

func TestBuildComparisonVerdictChutesWins(t *testing.T) {
	rep := Build([]*model.SessionAnalysis{
		analysisFor(model.ProviderNahcrof, "session_2025-11-17T13-14-06", 10, 40),
		analysisFor(model.ProviderChutes, "session_2025-11-17T14-00-00", 95, 5),
	}, false)

	if rep.Comparison == nil {
		t.Fatal("expected a comparison with both providers present")
	}
	if rep.Comparison.Verdict != VerdictChutesWins {
		t.Fatalf("expected chutes to win, got %v", rep.Comparison.Verdict)
	}
}

func TestBuildComparisonVerdictBothReliable(t *testing.T) {
	rep := Build([]*model.SessionAnalysis{
		analysisFor(model.ProviderNahcrof, "session_2025-11-17T13-14-06", 95, 5),
		analysisFor(model.ProviderChutes, "session_2025-11-17T14-00-00", 92, 8),
	}, false)

	if rep.Comparison.Verdict != VerdictBothReliable {
		t.Fatalf("expected both reliable, got %v", rep.Comparison.Verdict)
	}
}

func TestBuildComparisonVerdictBothIssues(t *testing.T) {
	// 89% and 40%: neither clears the winner bar.
	rep := Build([]*model.SessionAnalysis{
		analysisFor(model.ProviderNahcrof, "session_2025-11-17T13-14-06", 89, 11),
		analysisFor(model.ProviderChutes, "session_2025-11-17T14-00-00", 40, 60),
	}, false)

	if rep.Comparison.Verdict != VerdictBothIssues {
		t.Fatalf("expected both issues, got %v", rep.Comparison.Verdict)
	}
}

func TestBuildNoComparisonWithSingleProvider(t *testing.T) {
	rep := Build([]*model.SessionAnalysis{
		analysisFor(model.ProviderChutes, "session_2025-11-17T13-14-06", 90, 10),
	}, false)
	if rep.Comparison != nil {
		t.Fatal("comparison requires both known providers")
	}
}

func TestBuildPerSessionSkipsComparison(t *testing.T) {
	rep := Build([]*model.SessionAnalysis{
		analysisFor(model.ProviderNahcrof, "session_2025-11-17T13-14-06", 95, 5),
		analysisFor(model.ProviderChutes, "session_2025-11-17T14-00-00", 95, 5),
	}, true)
	if rep.Comparison != nil {
		t.Fatal("per-session mode must not compute a comparison")
	}
}

func TestLatestPerProvider(t *testing.T) {
	older := analysisFor(model.ProviderChutes, "session_2025-11-16T09-00-00", 50, 0)
	newer := analysisFor(model.ProviderChutes, "session_2025-11-17T13-14-06", 80, 0)

	// Newest-first input order, as auto-discovery produces.
	latest := latestPerProvider([]*model.SessionAnalysis{newer, older})
	if got := latest[model.ProviderChutes]; got != newer {
		t.Fatalf("expected the most recent session to be retained, got %s", got.SessionDir)
	}

	// Order independence.
	latest = latestPerProvider([]*model.SessionAnalysis{older, newer})
	if got := latest[model.ProviderChutes]; got != newer {
		t.Fatalf("reduction must not depend on iteration order, got %s", got.SessionDir)
	}
}

func TestGroupByProvider(t *testing.T) {
	a := analysisFor(model.ProviderChutes, "session_2025-11-16T09-00-00", 10, 2)
	a.Complete = 8
	a.CaughtRefusal = 1
	b := analysisFor(model.ProviderChutes, "session_2025-11-17T13-14-06", 20, 3)
	b.Complete = 20
	c := analysisFor(model.ProviderUnknown, "session_2025-11-15T08-00-00", 5, 0)

	groups := groupByProvider([]*model.SessionAnalysis{a, b, c})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	chutes := groups[0]
	if chutes.Provider != model.ProviderChutes {
		t.Fatalf("expected chutes group first, got %s", chutes.Provider)
	}
	if chutes.Sessions != 2 {
		t.Fatalf("expected 2 chutes sessions, got %d", chutes.Sessions)
	}
	if chutes.TotalCaught != 6 {
		t.Fatalf("expected 6 caught (incomplete+refusal), got %d", chutes.TotalCaught)
	}
	if chutes.TotalRecords != 30 || chutes.CompleteRecords != 28 {
		t.Fatalf("unexpected record totals: %+v", chutes)
	}
}

func TestCompletenessRatioZeroRecords(t *testing.T) {
	stats := ProviderStats{Provider: model.ProviderUnknown}
	if got := stats.CompletenessRatio(); got != 0 {
		t.Fatalf("expected 0 ratio with no records, got %f", got)
	}
}

func TestPersistUnifiedSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	analyses := []*model.SessionAnalysis{
		analysisFor(model.ProviderNahcrof, "session_2025-11-17T13-14-06", 10, 1),
	}

	if err := Persist(path, analyses); err != nil {
		t.Fatalf("Persist returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}

	var decoded struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results file is not valid JSON: %v", err)
	}
	if len(decoded.Sessions) != 1 {
		t.Fatalf("expected 1 session entry, got %d", len(decoded.Sessions))
	}
	if decoded.Sessions[0]["provider"] != "nahcrof" {
		t.Fatalf("entry must carry its provider, got %v", decoded.Sessions[0]["provider"])
	}
}

func TestPersistFailurePropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "results.json")
	if err := Persist(path, nil); err == nil {
		t.Fatal("expected error when the results path cannot be created")
	}
}
