// Package provider infers which API backend served a session from the
// config snapshot the pipeline backed up into the session directory.
package provider

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/lemon07r/vellumaudit/internal/model"
)

// SnapshotFilename is the config backup the pipeline writes at startup.
const SnapshotFilename = "config.toml.bak"

// Detect scans the session's config snapshot for the known provider
// names. The snapshot is not trusted as structured configuration here:
// identity comes from a literal substring scan, earliest occurrence wins.
// A missing or unrecognizable snapshot means the provider is unknown.
func Detect(sessionDir string) model.Provider {
	content, err := os.ReadFile(filepath.Join(sessionDir, SnapshotFilename))
	if err != nil {
		return model.ProviderUnknown
	}

	text := string(content)
	nahcrof := strings.Index(text, string(model.ProviderNahcrof))
	chutes := strings.Index(text, string(model.ProviderChutes))

	switch {
	case nahcrof >= 0 && (chutes < 0 || nahcrof < chutes):
		return model.ProviderNahcrof
	case chutes >= 0:
		return model.ProviderChutes
	default:
		return model.ProviderUnknown
	}
}

// snapshotConfig mirrors the slice of the pipeline's config that is worth
// showing in a report. Field names follow the pipeline's own toml schema.
type snapshotConfig struct {
	Generation struct {
		Concurrency int `toml:"concurrency"`
	} `toml:"generation"`
	Models map[string]struct {
		BaseURL   string `toml:"base_url"`
		ModelName string `toml:"model_name"`
	} `toml:"models"`
}

// Snapshot decodes display metadata from the config snapshot: the main
// model's name and endpoint plus the run concurrency. Best effort only:
// any decode failure yields nil, never an error, because the snapshot is
// freeform text as far as correctness is concerned.
func Snapshot(sessionDir string) *model.ConfigSnapshot {
	content, err := os.ReadFile(filepath.Join(sessionDir, SnapshotFilename))
	if err != nil {
		return nil
	}

	var cfg snapshotConfig
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil
	}

	snap := &model.ConfigSnapshot{Concurrency: cfg.Generation.Concurrency}
	if main, ok := cfg.Models["main"]; ok {
		snap.ModelName = main.ModelName
		snap.BaseURL = main.BaseURL
	}

	if snap.ModelName == "" && snap.BaseURL == "" && snap.Concurrency == 0 {
		return nil
	}
	return snap
}
