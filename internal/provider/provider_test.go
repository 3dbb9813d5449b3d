package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lemon07r/vellumaudit/internal/model"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SnapshotFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return dir
}

func TestDetectNahcrof(t *testing.T) {
	dir := writeSnapshot(t, "[models.main]\nbase_url = \"https://ai.nahcrof.com/v2\"\n")
	if got := Detect(dir); got != model.ProviderNahcrof {
		t.Fatalf("expected nahcrof, got %s", got)
	}
}

func TestDetectChutes(t *testing.T) {
	dir := writeSnapshot(t, "[models.main]\nbase_url = \"https://llm.chutes.ai/v1\"\n")
	if got := Detect(dir); got != model.ProviderChutes {
		t.Fatalf("expected chutes, got %s", got)
	}
}

func TestDetectEarliestOccurrenceWins(t *testing.T) {
	dir := writeSnapshot(t, "# moved from chutes\n[models.main]\nbase_url = \"https://ai.nahcrof.com/v2\"\n")
	if got := Detect(dir); got != model.ProviderChutes {
		t.Fatalf("expected earliest substring to win, got %s", got)
	}
}

func TestDetectMissingSnapshot(t *testing.T) {
	if got := Detect(t.TempDir()); got != model.ProviderUnknown {
		t.Fatalf("expected unknown for missing snapshot, got %s", got)
	}
}

func TestDetectUnrecognizedSnapshot(t *testing.T) {
	dir := writeSnapshot(t, "[models.main]\nbase_url = \"http://localhost:8080/v1\"\n")
	if got := Detect(dir); got != model.ProviderUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestSnapshotMetadata(t *testing.T) {
	dir := writeSnapshot(t, `
[generation]
concurrency = 24

[models.main]
base_url = "https://llm.chutes.ai/v1"
model_name = "deepseek-ai/DeepSeek-V3"
`)

	snap := Snapshot(dir)
	if snap == nil {
		t.Fatal("expected snapshot metadata")
	}
	if snap.ModelName != "deepseek-ai/DeepSeek-V3" {
		t.Fatalf("unexpected model name: %s", snap.ModelName)
	}
	if snap.BaseURL != "https://llm.chutes.ai/v1" {
		t.Fatalf("unexpected base url: %s", snap.BaseURL)
	}
	if snap.Concurrency != 24 {
		t.Fatalf("unexpected concurrency: %d", snap.Concurrency)
	}
}

func TestSnapshotMalformedToml(t *testing.T) {
	dir := writeSnapshot(t, "this is not toml = = =")
	if snap := Snapshot(dir); snap != nil {
		t.Fatalf("expected nil snapshot for malformed toml, got %+v", snap)
	}
}

func TestSnapshotMissingFile(t *testing.T) {
	if snap := Snapshot(t.TempDir()); snap != nil {
		t.Fatalf("expected nil snapshot for missing file, got %+v", snap)
	}
}
