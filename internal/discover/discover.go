// Package discover locates stress-test session directories when none are
// named explicitly.
package discover

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultBaseDir is where the generation pipeline writes sessions.
	DefaultBaseDir = "output"
	// DefaultLimit caps auto-discovery at the two most recent sessions,
	// one per provider in the usual A/B workflow.
	DefaultLimit = 2

	// stressJobThreshold is the fixed heuristic separating large-scale
	// stress runs from smoke tests: at least this many job log lines.
	stressJobThreshold = 90

	sessionPrefix = "session_"
	logFilename   = "session.log"
)

// Job log lines counted toward the stress-test heuristic. Matched on the
// raw line, not the decoded message, exactly as the heuristic was tuned.
var jobLineMarkers = []string{
	"Job processing breakdown",
	"Job failed",
}

// Result holds discovered session paths and non-fatal warnings hit while
// scanning candidates.
type Result struct {
	Sessions []string
	Warnings []error
}

// Find returns up to limit stress-test session directories under baseDir,
// most recent first. Session directories are named session_<timestamp>
// with a zero-padded ISO-like timestamp, so descending lexicographic
// order is descending chronological order. A missing base directory
// yields an empty result; finding nothing is not an error.
func Find(baseDir string, limit int) (Result, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var result Result

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, fmt.Errorf("read base directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), sessionPrefix) {
			candidates = append(candidates, filepath.Join(baseDir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates)))

	for _, dir := range candidates {
		if len(result.Sessions) >= limit {
			break
		}

		stress, err := isStressTest(filepath.Join(dir, logFilename))
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Errorf("inspect %s: %w", dir, err))
			continue
		}
		if stress {
			result.Sessions = append(result.Sessions, dir)
		}
	}

	return result, nil
}

// isStressTest reports whether the log at path holds at least
// stressJobThreshold job lines. Reading stops as soon as the threshold is
// met. A missing log disqualifies the session without erroring.
func isStressTest(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	const maxCapacity = 8 * 1024 * 1024
	scanner.Buffer(make([]byte, 1024), maxCapacity)

	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		for _, marker := range jobLineMarkers {
			if strings.Contains(line, marker) {
				count++
				break
			}
		}
		if count >= stressJobThreshold {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, nil
}
