package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/lemon07r/vellumaudit/internal/model"
)

// RenderOptions controls the text renderer.
type RenderOptions struct {
	ForceColor   bool
	ForceNoColor bool
	Out          io.Writer
	OutFile      *os.File
	// Snapshots carries optional config metadata keyed by session dir.
	Snapshots map[string]*model.ConfigSnapshot
}

const (
	ansiReset     = "\x1b[0m"
	ansiBoldWhite = "\x1b[1;97m"
	ansiGood      = "\x1b[38;5;40m"
	ansiBad       = "\x1b[38;5;196m"
	ansiWarn      = "\x1b[38;5;220m"
	ansiDim       = "\x1b[38;5;245m"
)

// Render writes the full text report: a heading, one block per session
// (or per provider in comparison mode), the comparison table and verdict
// when available, and the validation-effectiveness summary.
func Render(rep *Report, opts RenderOptions) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	color := resolveColorChoice(opts)
	width := determineWidth(opts.OutFile)

	rule := strings.Repeat("=", min(width, 80))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "API RELIABILITY ANALYSIS"))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	if rep.PerSession {
		fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "SESSION ANALYSIS"))
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out)
		for _, a := range rep.Analyses {
			renderSession(out, a, "Session: "+filepath.Base(a.SessionDir), false, opts.Snapshots[a.SessionDir], color, width)
		}
	} else {
		fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "PROVIDER COMPARISON"))
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out)
		for _, a := range comparisonOrder(rep) {
			heading := fmt.Sprintf("Provider: %s", strings.ToUpper(string(a.Provider)))
			renderSession(out, a, heading, true, opts.Snapshots[a.SessionDir], color, width)
		}
		if rep.Comparison != nil {
			renderComparison(out, rep.Comparison, color, width)
		}
	}

	renderEffectiveness(out, rep.Groups, color, width)
}

// comparisonOrder yields the analyses shown in comparison mode: the latest
// per provider, known providers first.
func comparisonOrder(rep *Report) []*model.SessionAnalysis {
	latest := latestPerProvider(rep.Analyses)
	order := []model.Provider{model.ProviderNahcrof, model.ProviderChutes}
	var result []*model.SessionAnalysis
	for _, p := range order {
		if a, ok := latest[p]; ok {
			result = append(result, a)
			delete(latest, p)
		}
	}
	if a, ok := latest[model.ProviderUnknown]; ok {
		result = append(result, a)
	}
	return result
}

func renderSession(out io.Writer, a *model.SessionAnalysis, heading string, showSession bool, snap *model.ConfigSnapshot, color bool, width int) {
	total := a.TotalAttempts()
	rate := a.SuccessRate()

	fmt.Fprintln(out, colorIf(color, ansiBoldWhite, heading))
	if showSession {
		fmt.Fprintf(out, "  Session: %s\n", filepath.Base(a.SessionDir))
	}
	fmt.Fprintf(out, "  Provider: %s\n", strings.ToUpper(string(a.Provider)))
	if snap != nil {
		if snap.ModelName != "" {
			fmt.Fprintf(out, "  Model: %s\n", snap.ModelName)
		}
		if snap.BaseURL != "" {
			fmt.Fprintf(out, "  Endpoint: %s\n", snap.BaseURL)
		}
		if snap.Concurrency > 0 {
			fmt.Fprintf(out, "  Concurrency: %d\n", snap.Concurrency)
		}
	}
	fmt.Fprintf(out, "  Total attempts: %d\n", total)
	fmt.Fprintf(out, "  %s %d (%.1f%%)\n", colorIf(color, ansiGood, "Succeeded:"), a.TotalRecords, rate)
	fmt.Fprintf(out, "  %s %d (%.1f%%)\n", colorIf(color, ansiBad, "Failed:"), total-a.TotalRecords, 100-rate)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Failure breakdown:")
	fmt.Fprintf(out, "    Incomplete outputs caught: %d\n", a.CaughtIncomplete)
	fmt.Fprintf(out, "    Missing finish_reason: %d\n", a.CaughtMissingFinish)
	fmt.Fprintf(out, "    Refusals: %d\n", a.CaughtRefusal)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Dataset quality:")
	fmt.Fprintf(out, "    Total records: %d\n", a.TotalRecords)
	fmt.Fprintf(out, "    Complete: %d (%.1f%%)\n", a.Complete, a.CompletenessRatio()*100)
	fmt.Fprintf(out, "    Incomplete: %d\n", a.Incomplete)
	if a.Empty > 0 {
		fmt.Fprintf(out, "    Empty: %d\n", a.Empty)
	}
	fmt.Fprintln(out)

	if a.LogSummary != nil {
		fmt.Fprintln(out, "  Pipeline summary (from log):")
		fmt.Fprintf(out, "    Prompts: %d, successful: %d, failed: %d\n",
			a.LogSummary.TotalPrompts, a.LogSummary.Successful, a.LogSummary.Failed)
		if a.LogSummary.Successful != a.TotalRecords {
			fmt.Fprintf(out, "    %s\n", colorIf(color, ansiWarn,
				fmt.Sprintf("note: log reports %d successful, dataset holds %d records",
					a.LogSummary.Successful, a.TotalRecords)))
		}
		fmt.Fprintln(out)
	}

	if len(a.SampleIncomplete) > 0 {
		fmt.Fprintln(out, "  Sample incomplete outputs saved:")
		for _, sample := range a.SampleIncomplete {
			fmt.Fprintf(out, "    - %d chars - ends: '...%s'\n", sample.Length, sample.Ending)
		}
		fmt.Fprintln(out)
	}

	if a.SkippedDatasetLines > 0 || a.SkippedLogLines > 0 {
		fmt.Fprintf(out, "  %s\n", colorIf(color, ansiDim,
			fmt.Sprintf("skipped lines: %d dataset, %d log", a.SkippedDatasetLines, a.SkippedLogLines)))
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, strings.Repeat("-", min(width, 80)))
	fmt.Fprintln(out)
}

func renderComparison(out io.Writer, cmp *Comparison, color bool, width int) {
	rule := strings.Repeat("=", min(width, 80))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "COMPARISON SUMMARY"))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	n, c := cmp.Nahcrof, cmp.Chutes
	fmt.Fprintf(out, "%-28s %15s %15s\n", "Metric", "nahcrof", "chutes")
	fmt.Fprintln(out, strings.Repeat("-", min(width, 60)))
	fmt.Fprintf(out, "%-28s %14.1f%% %14.1f%%\n", "Success rate", n.SuccessRate(), c.SuccessRate())
	fmt.Fprintf(out, "%-28s %15d %15d\n", "Accepted records", n.TotalRecords, c.TotalRecords)
	fmt.Fprintf(out, "%-28s %15d %15d\n", "Incomplete caught", n.CaughtIncomplete, c.CaughtIncomplete)
	fmt.Fprintf(out, "%-28s %11d/%-3d %11d/%-3d\n", "Complete/total",
		n.Complete, n.TotalRecords, c.Complete, c.TotalRecords)
	fmt.Fprintln(out)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "VERDICT"))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	switch cmp.Verdict {
	case VerdictChutesWins:
		fmt.Fprintln(out, colorIf(color, ansiGood, "CHUTES is significantly more reliable"))
		fmt.Fprintf(out, "  %.1f%% success vs %.1f%% for nahcrof\n", c.SuccessRate(), n.SuccessRate())
		fmt.Fprintln(out, "  Recommendation: use chutes for production")
	case VerdictNahcrofWins:
		fmt.Fprintln(out, colorIf(color, ansiGood, "NAHCROF is significantly more reliable"))
		fmt.Fprintf(out, "  %.1f%% success vs %.1f%% for chutes\n", n.SuccessRate(), c.SuccessRate())
		fmt.Fprintln(out, "  Recommendation: use nahcrof for production")
	case VerdictBothReliable:
		fmt.Fprintln(out, colorIf(color, ansiGood, "BOTH providers are reliable"))
		fmt.Fprintf(out, "  nahcrof: %.1f%% success, chutes: %.1f%% success\n", n.SuccessRate(), c.SuccessRate())
		fmt.Fprintln(out, "  Recommendation: pick on cost or speed")
	default:
		fmt.Fprintln(out, colorIf(color, ansiWarn, "BOTH providers have reliability issues"))
		fmt.Fprintf(out, "  nahcrof: %.1f%% success, chutes: %.1f%% success\n", n.SuccessRate(), c.SuccessRate())
		fmt.Fprintln(out, "  Recommendation: disable streaming or test other providers")
	}
	fmt.Fprintln(out)
}

func renderEffectiveness(out io.Writer, groups []ProviderStats, color bool, width int) {
	rule := strings.Repeat("=", min(width, 80))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, colorIf(color, ansiBoldWhite, "VALIDATION EFFECTIVENESS"))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	for _, g := range groups {
		fmt.Fprintf(out, "  %s: caught %d failures before they reached the dataset\n",
			g.Provider, g.TotalCaught)
		fmt.Fprintf(out, "    dataset quality: %d/%d complete (%.1f%%)\n",
			g.CompleteRecords, g.TotalRecords, g.CompletenessRatio()*100)
	}
	fmt.Fprintln(out)
}

func resolveColorChoice(opts RenderOptions) bool {
	if opts.ForceColor {
		return true
	}
	if opts.ForceNoColor {
		return false
	}
	return shouldUseColorAuto(opts.Out)
}

func shouldUseColorAuto(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func determineWidth(out *os.File) int {
	if out != nil {
		if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func colorIf(enabled bool, code, text string) string {
	if !enabled {
		return text
	}
	return code + text + ansiReset
}
