package downloader

import (
	"os"
	"path/filepath"
	"testing"

	"servefetch/internal"
)

func uint64p(v uint64) *uint64 { return &v }

func TestNewPartialDownloadState_KnownTotal(t *testing.T) {
	state := NewPartialDownloadState(uint64p(1000), 4)
	if len(state.Parts) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(state.Parts))
	}
	if state.Parts[0].Start != 0 || state.Parts[3].EndInclusive != 999 {
		t.Errorf("unexpected part layout: %+v", state.Parts)
	}
}

func TestNewPartialDownloadState_UnknownTotal(t *testing.T) {
	state := NewPartialDownloadState(nil, 4)
	if len(state.Parts) != 1 {
		t.Fatalf("expected a single placeholder part, got %d", len(state.Parts))
	}
	if state.Total != nil {
		t.Errorf("expected nil total, got %v", *state.Total)
	}
}

func TestNewPartialDownloadState_ClampsPartCount(t *testing.T) {
	state := NewPartialDownloadState(uint64p(10), 0)
	if state.PartCount != 1 {
		t.Errorf("expected part count clamped to 1, got %d", state.PartCount)
	}
}

func TestSaveLoadClear_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, ".report.pdf.tmp")

	state := NewPartialDownloadState(uint64p(10_000_000), 4)
	state.Parts[0].Downloaded = 2_500_000

	SaveState(tempPath, state)

	loaded := LoadState(tempPath)
	if loaded == nil {
		t.Fatal("expected loaded state, got nil")
	}
	if loaded.PartCount != 4 || len(loaded.Parts) != 4 {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}
	if loaded.Parts[0].Downloaded != 2_500_000 {
		t.Errorf("expected downloaded progress preserved, got %d", loaded.Parts[0].Downloaded)
	}

	if _, err := os.Stat(tempPath + ".state.tmp"); !os.IsNotExist(err) {
		t.Errorf("expected staging file to be renamed away, got err=%v", err)
	}

	ClearState(tempPath)
	if loaded := LoadState(tempPath); loaded != nil {
		t.Errorf("expected state cleared, got %+v", loaded)
	}
}

func TestLoadState_MissingFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	if state := LoadState(filepath.Join(dir, ".absent.tmp")); state != nil {
		t.Errorf("expected nil for missing state file, got %+v", state)
	}
}

func TestLoadState_CorruptFileReturnsNil(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, ".report.pdf.tmp")
	if err := os.WriteFile(tempPath+".state", []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if state := LoadState(tempPath); state != nil {
		t.Errorf("expected nil for corrupt state file, got %+v", state)
	}
}

func TestClearState_MissingFilesIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	// Should not panic or otherwise misbehave when nothing exists yet.
	ClearState(filepath.Join(dir, ".absent.tmp"))
}

func TestEnsureLayout_FreshStateUsesRequestedCount(t *testing.T) {
	state := &internal.PartialDownloadState{}
	EnsureLayout(state, 1000, 5)

	if state.PartCount != 5 {
		t.Errorf("expected requested part count 5, got %d", state.PartCount)
	}
	if len(state.Parts) != 5 {
		t.Fatalf("expected 5 parts, got %d", len(state.Parts))
	}
}

func TestEnsureLayout_ResumedStateKeepsPersistedCount(t *testing.T) {
	state := NewPartialDownloadState(uint64p(1000), 3)
	state.Parts[0].Downloaded = 100

	EnsureLayout(state, 1000, 8)

	if state.PartCount != 3 {
		t.Errorf("expected persisted part count 3 to win over requested 8, got %d", state.PartCount)
	}
	if len(state.Parts) != 3 {
		t.Fatalf("expected 3 parts preserved, got %d", len(state.Parts))
	}
}

func TestEnsureLayout_PreservesDownloadedAcrossRelayout(t *testing.T) {
	// Re-laying out a resumed state at the same total and part count keeps
	// its downloaded progress.
	state := NewPartialDownloadState(uint64p(100), 2)
	state.Parts[0].Downloaded = 50

	EnsureLayout(state, 100, 2)

	if state.Parts[0].Downloaded != 50 {
		t.Errorf("expected downloaded progress preserved, got %d", state.Parts[0].Downloaded)
	}
}

func TestEnsureLayout_ClampsDownloadedToNewPartLength(t *testing.T) {
	state := NewPartialDownloadState(uint64p(10), 1)
	state.Parts[0].Downloaded = 10

	// Relaying out to more parts shrinks each part's length; downloaded
	// must never exceed it even transiently.
	state.PartCount = 4
	EnsureLayout(state, 10, 4)

	for i, p := range state.Parts {
		if p.Downloaded > p.Len() {
			t.Errorf("part %d: downloaded %d exceeds length %d", i, p.Downloaded, p.Len())
		}
	}
}

func TestEnsureLayout_SetsTotal(t *testing.T) {
	state := &internal.PartialDownloadState{}
	EnsureLayout(state, 42, 1)
	if state.Total == nil || *state.Total != 42 {
		t.Errorf("expected total set to 42, got %v", state.Total)
	}
}

func TestRebuildParts_DiscardsProgress(t *testing.T) {
	state := NewPartialDownloadState(uint64p(1000), 2)
	state.Parts[0].Downloaded = 500

	RebuildParts(state, 1000)

	for i, p := range state.Parts {
		if p.Downloaded != 0 {
			t.Errorf("part %d: expected progress reset, got %d", i, p.Downloaded)
		}
	}
}

func TestCompletedBytesAndIsComplete(t *testing.T) {
	state := NewPartialDownloadState(uint64p(100), 2)
	if state.IsComplete() {
		t.Error("expected incomplete state for fresh download")
	}
	if state.CompletedBytes() != 0 {
		t.Errorf("expected 0 completed bytes, got %d", state.CompletedBytes())
	}

	for i := range state.Parts {
		state.Parts[i].Downloaded = state.Parts[i].Len()
	}
	if !state.IsComplete() {
		t.Error("expected complete state once every part is fully downloaded")
	}
	if state.CompletedBytes() != 100 {
		t.Errorf("expected 100 completed bytes, got %d", state.CompletedBytes())
	}
}
