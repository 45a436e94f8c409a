package downloader

import (
	"encoding/json"
	"os"

	"servefetch/internal"
)

// NewPartialDownloadState builds the in-memory resume state for a fresh
// download, component C. When total is known the parts are laid out
// immediately via Plan; when it is not (no Content-Length from the probe),
// a single placeholder part stands in until the first response reveals a
// length.
func NewPartialDownloadState(total *uint64, partCount int) *internal.PartialDownloadState {
	if partCount < 1 {
		partCount = 1
	}
	state := &internal.PartialDownloadState{
		Total:     total,
		PartCount: uint64(partCount),
	}
	if total != nil {
		RebuildParts(state, *total)
	} else {
		state.Parts = []internal.PartProgress{{Start: 0, EndInclusive: 0}}
	}
	return state
}

// RebuildParts regenerates state.Parts from Plan(total, state.PartCount),
// discarding any progress already recorded. Callers that want to preserve
// progress across a relayout should use EnsureLayout instead.
func RebuildParts(state *internal.PartialDownloadState, total uint64) {
	plan := Plan(total, int(state.PartCount))
	parts := make([]internal.PartProgress, 0, len(plan))
	for _, r := range plan {
		parts = append(parts, internal.PartProgress{Start: r.Start, EndInclusive: r.EndInclusive})
	}
	state.Parts = parts
}

// EnsureLayout reconciles a state (freshly constructed or loaded from disk)
// against the now-known total length and the connection count requested on
// this run.
//
// Unlike the geometry this was ported from, a persisted part count that
// disagrees with the requested connection count wins: the state was already
// resumed with a given number of parts, and relaying it out to a different
// count would discard the part boundaries the partially-downloaded bytes
// were written against. The requested count only applies to state that has
// no resume history yet. A state whose recorded total differs from total is
// discarded: its parts are laid out afresh from zero with the requested count.
func EnsureLayout(state *internal.PartialDownloadState, total uint64, requestedParts int) {
	if requestedParts < 1 {
		requestedParts = 1
	}
	if state.PartCount < 1 {
		state.PartCount = 1
	}

	if state.Total != nil && *state.Total != total && len(state.Parts) > 0 {
		internal.LogWarn("remote size changed from %d to %d bytes; restarting download from zero", *state.Total, total)
		state.Parts = nil
	}

	if len(state.Parts) == 0 {
		// No resume history: the requested count governs.
		state.PartCount = uint64(requestedParts)
	} else if state.PartCount != uint64(requestedParts) {
		internal.LogWarn("resuming with %d connection(s) from a previous run; ignoring the requested %d", state.PartCount, requestedParts)
	}

	state.Total = &total

	if len(state.Parts) != int(state.PartCount) {
		RebuildParts(state, total)
		return
	}

	plan := Plan(total, int(state.PartCount))
	for i := range state.Parts {
		state.Parts[i].Start = plan[i].Start
		state.Parts[i].EndInclusive = plan[i].EndInclusive
		if length := state.Parts[i].Len(); state.Parts[i].Downloaded > length {
			state.Parts[i].Downloaded = length
		}
	}
}

// LoadState reads the sidecar state file next to tempPath, returning nil
// (not an error) if it is absent, unreadable, or malformed — a missing or
// corrupt resume file means "start over", not "fail the download".
func LoadState(tempPath string) *internal.PartialDownloadState {
	statePath := tempPath + ".state"
	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil
	}

	var state internal.PartialDownloadState
	if err := json.Unmarshal(data, &state); err != nil {
		internal.LogWarn("failed to parse partial download state %s: %v", statePath, err)
		return nil
	}
	if state.PartCount < 1 {
		state.PartCount = 1
	}
	return &state
}

// SaveState persists state via write-to-staging-file then atomic rename, so
// a crash mid-write never leaves a corrupt state file behind. It never
// returns an error to the caller: a failed save only costs the next resume
// some re-downloaded bytes, and must not abort a transfer that is otherwise
// proceeding fine.
func SaveState(tempPath string, state *internal.PartialDownloadState) {
	statePath := tempPath + ".state"
	stagePath := tempPath + ".state.tmp"

	data, err := json.Marshal(state)
	if err != nil {
		internal.LogWarn("failed to serialize partial download state: %v", err)
		return
	}
	if err := os.WriteFile(stagePath, data, 0o644); err != nil {
		internal.LogWarn("failed to persist partial download state %s: %v", stagePath, err)
		return
	}
	if err := os.Rename(stagePath, statePath); err != nil {
		os.Remove(stagePath)
		internal.LogWarn("failed to finalize partial download state %s: %v", statePath, err)
	}
}

// ClearState removes both the state file and any leftover staging file,
// once a transfer completes and no longer needs to be resumable.
func ClearState(tempPath string) {
	statePath := tempPath + ".state"
	stagePath := tempPath + ".state.tmp"
	if err := os.Remove(statePath); err != nil && !os.IsNotExist(err) {
		internal.LogWarn("failed to remove partial download state %s: %v", statePath, err)
	}
	if err := os.Remove(stagePath); err != nil && !os.IsNotExist(err) {
		internal.LogWarn("failed to remove partial download state staging file %s: %v", stagePath, err)
	}
}
