// Package session reconciles one session directory's dataset and log into
// a SessionAnalysis.
package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lemon07r/vellumaudit/internal/logevent"
	"github.com/lemon07r/vellumaudit/internal/model"
	"github.com/lemon07r/vellumaudit/internal/record"
)

const (
	// DatasetFilename is the accepted-records artifact inside a session.
	DatasetFilename = "dataset.jsonl"
	// LogFilename is the structured log artifact inside a session.
	LogFilename = "session.log"

	// maxIncompleteSamples bounds the diagnostic excerpts kept per session.
	maxIncompleteSamples = 3
	// sampleEndingRunes is the excerpt length for incomplete samples.
	sampleEndingRunes = 60
)

// Analyze scans dir's dataset and log artifacts and returns the reconciled
// analysis. A missing session directory yields (nil, nil): the session is
// absent, which the caller reports as a warning rather than an error.
// Either artifact may be missing; a missing file simply contributes
// nothing. Malformed lines in both files are skipped and counted.
func Analyze(dir string) (*model.SessionAnalysis, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	analysis := &model.SessionAnalysis{
		SessionDir:       dir,
		SampleIncomplete: []model.IncompleteSample{},
	}

	if err := scanDataset(filepath.Join(dir, DatasetFilename), analysis); err != nil {
		return nil, err
	}
	if err := scanLog(filepath.Join(dir, LogFilename), analysis); err != nil {
		return nil, err
	}

	return analysis, nil
}

func scanDataset(path string, analysis *model.SessionAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		class, text := record.Classify(line)
		switch class {
		case record.Unrecognized:
			// Unknown shapes and partial writes are dropped, not counted.
			analysis.SkippedDatasetLines++
			continue
		case record.Empty:
			analysis.Empty++
		case record.Complete:
			analysis.Complete++
		case record.Incomplete:
			analysis.Incomplete++
			if len(analysis.SampleIncomplete) < maxIncompleteSamples {
				analysis.SampleIncomplete = append(analysis.SampleIncomplete, model.IncompleteSample{
					Length: len([]rune(text)),
					Ending: record.Ending(text, sampleEndingRunes),
				})
			}
		}
		analysis.TotalRecords++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan dataset: %w", err)
	}
	return nil
}

func scanLog(path string, analysis *model.SessionAnalysis) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open session log: %w", err)
	}
	defer file.Close()

	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		tag, summary, ok := logevent.Classify(line)
		if !ok {
			analysis.SkippedLogLines++
			continue
		}

		switch tag {
		case logevent.CaughtIncomplete:
			analysis.CaughtIncomplete++
		case logevent.CaughtMissingFinish:
			analysis.CaughtMissingFinish++
		case logevent.CaughtRefusal:
			analysis.CaughtRefusal++
		}

		if summary != nil {
			// Last summary event wins when a resumed run logged several.
			analysis.LogSummary = summary
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan session log: %w", err)
	}
	return nil
}

func newScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	// Allow large payloads such as full story outputs.
	const maxCapacity = 8 * 1024 * 1024
	buf := make([]byte, 1024)
	scanner.Buffer(buf, maxCapacity)
	return scanner
}
