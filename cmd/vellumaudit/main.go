package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lemon07r/vellumaudit/internal/discover"
	"github.com/lemon07r/vellumaudit/internal/model"
	"github.com/lemon07r/vellumaudit/internal/provider"
	"github.com/lemon07r/vellumaudit/internal/report"
	"github.com/lemon07r/vellumaudit/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "vellumaudit",
	Short: "Analyze the reliability of VellumForge2 generation sessions",
}

func init() {
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newDiscoverCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vellumaudit: %v\n", err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		baseDir      string
		maxAuto      int
		formatFlag   string
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [session-dir ...]",
		Short: "Reconcile dataset records with caught failures and report reliability",
		Long: `Analyze one or more completed generation sessions.

With explicit session directories, one report block is emitted per
session. Without arguments the most recent stress-test sessions are
auto-discovered under the base directory and reduced to a per-provider
comparison with a verdict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			errs := cmd.ErrOrStderr()

			explicit := len(args) > 0
			var sessions []string
			if explicit {
				for _, arg := range args {
					dir, err := resolveSessionDir(arg, baseDir)
					if err != nil {
						return err
					}
					sessions = append(sessions, dir)
				}
			} else {
				found, err := discover.Find(baseDir, maxAuto)
				if err != nil {
					return err
				}
				for _, warn := range found.Warnings {
					fmt.Fprintf(errs, "warning: %v\n", warn)
				}
				sessions = found.Sessions
			}

			if len(sessions) == 0 {
				fmt.Fprintln(errs, "warning: no stress-test sessions found")
				fmt.Fprintln(errs, "run the generation pipeline first, or pass session directories explicitly")
				return nil
			}

			var analyses []*model.SessionAnalysis
			snapshots := make(map[string]*model.ConfigSnapshot)
			for _, dir := range sessions {
				analysis, err := session.Analyze(dir)
				if err != nil {
					return err
				}
				if analysis == nil {
					fmt.Fprintf(errs, "warning: skipping missing session directory: %s\n", dir)
					continue
				}
				analysis.Provider = provider.Detect(dir)
				if snap := provider.Snapshot(dir); snap != nil {
					snapshots[dir] = snap
				}
				analyses = append(analyses, analysis)
			}

			if len(analyses) == 0 {
				fmt.Fprintln(errs, "warning: no analyzable sessions found")
				return nil
			}

			rep := report.Build(analyses, explicit)

			jsonMode := false
			switch strings.ToLower(formatFlag) {
			case "json":
				jsonMode = true
				if err := report.WriteJSON(cmd.OutOrStdout(), analyses); err != nil {
					return err
				}
			case "text":
				outFile, _ := cmd.OutOrStdout().(*os.File)
				report.Render(rep, report.RenderOptions{
					ForceColor:   forceColor,
					ForceNoColor: forceNoColor,
					Out:          cmd.OutOrStdout(),
					OutFile:      outFile,
					Snapshots:    snapshots,
				})
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}

			if err := report.Persist(report.ResultsFilename, analyses); err != nil {
				return err
			}
			// Keep json stdout machine-readable; the notice goes to stderr.
			notice := cmd.OutOrStdout()
			if jsonMode {
				notice = errs
			}
			fmt.Fprintf(notice, "Detailed results saved to: %s\n", report.ResultsFilename)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&baseDir, "base-dir", discover.DefaultBaseDir, "base directory holding session_* folders")
	flags.IntVar(&maxAuto, "max-auto", discover.DefaultLimit, "maximum number of auto-discovered sessions")
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")
	flags.BoolVar(&forceColor, "color", false, "force colored output")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable colored output")

	return cmd
}

func newDiscoverCmd() *cobra.Command {
	var (
		baseDir    string
		limit      int
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List stress-test sessions without analyzing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := discover.Find(baseDir, limit)
			if err != nil {
				return err
			}

			errs := cmd.ErrOrStderr()
			for _, warn := range found.Warnings {
				fmt.Fprintf(errs, "warning: %v\n", warn)
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(formatFlag) {
			case "tsv":
				for _, dir := range found.Sessions {
					fmt.Fprintf(out, "%s\t%s\n", filepath.Base(dir), string(provider.Detect(dir)))
				}
				return nil
			case "json":
				type entry struct {
					Session  string `json:"session"`
					Path     string `json:"path"`
					Provider string `json:"provider"`
				}
				entries := make([]entry, 0, len(found.Sessions))
				for _, dir := range found.Sessions {
					entries = append(entries, entry{
						Session:  filepath.Base(dir),
						Path:     dir,
						Provider: string(provider.Detect(dir)),
					})
				}
				return writeJSON(out, entries)
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&baseDir, "base-dir", discover.DefaultBaseDir, "base directory holding session_* folders")
	flags.IntVar(&limit, "limit", discover.DefaultLimit, "maximum number of sessions to list")
	flags.StringVar(&formatFlag, "format", "tsv", "output format: tsv or json")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveSessionDir accepts either a full path or a bare session_<ts> name
// relative to baseDir.
func resolveSessionDir(arg, baseDir string) (string, error) {
	if arg == "" {
		return "", errors.New("session directory is empty")
	}

	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}

	candidate := filepath.Join(baseDir, arg)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}

	return arg, nil
}
