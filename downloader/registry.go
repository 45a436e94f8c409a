package downloader

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"servefetch/internal"
)

// tempRegistry is the process-wide set of in-flight temp file paths,
// component B. It is initialized at package load and guarded by a mutex; nothing
// in this package ever deletes a path from disk on its behalf — draining
// only removes bookkeeping entries and hands the caller the surviving
// paths to report.
type tempRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

var registry = &tempRegistry{paths: make(map[string]struct{})}

// Track registers a temp file path as in-flight.
func Track(path string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.paths[path] = struct{}{}
}

// Untrack removes a temp file path, normally called once its transfer has
// finalized successfully.
func Untrack(path string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.paths, path)
}

// DrainAll empties the registry and returns the paths that were still
// in-flight. The caller is responsible for reporting them; DrainAll never
// touches the filesystem.
func DrainAll() []string {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	out := make([]string, 0, len(registry.paths))
	for p := range registry.paths {
		out = append(out, p)
	}
	registry.paths = make(map[string]struct{})
	return out
}

// CleanupGuard is a scoped object representing "this transfer is in
// progress", component K. Callers must `defer guard.Disarm()` is wrong —
// the contract is the opposite: callers arm a guard at the start of a
// transfer and call Disarm only once the transfer has succeeded. If the
// function returns by any other path (error, panic) while still armed,
// the deferred Release call drains and reports the registry.
type CleanupGuard struct {
	armed bool
}

// NewCleanupGuard returns an armed guard.
func NewCleanupGuard() *CleanupGuard {
	return &CleanupGuard{armed: true}
}

// Disarm marks the guard's transfer as having completed successfully; its
// later Release call becomes a no-op.
func (g *CleanupGuard) Disarm() {
	g.armed = false
}

// Release is the unscheduled-drop path: call it via defer immediately
// after NewCleanupGuard. If the guard is still armed, it drains the
// registry and prints every surviving path to stderr.
func (g *CleanupGuard) Release() {
	if !g.armed {
		return
	}
	kept := DrainAll()
	if len(kept) > 0 {
		fmt.Fprintln(os.Stderr, "download interrupted; partial file(s) preserved:")
		for _, p := range kept {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
	}
}

var installSignalHandlerOnce sync.Once

// InstallSignalHandler registers, exactly once per process, a SIGINT/
// SIGTERM handler that drains the temp registry, reports survivors, and
// exits with code 130 — the externalized cancellation model of §5: no
// cooperative cancellation token is plumbed through the engine, workers
// only observe the process exiting.
func InstallSignalHandler() {
	installSignalHandlerOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-ch
			kept := DrainAll()
			if len(kept) == 0 {
				fmt.Fprintln(os.Stderr, "Operation cancelled.")
			} else {
				fmt.Fprintln(os.Stderr, "Operation cancelled; partial file(s) preserved:")
				for _, p := range kept {
					fmt.Fprintf(os.Stderr, "  %s\n", p)
				}
			}
			os.Exit(130)
		}()
	})
}

// ensureParentDir is a small helper shared by the single/multi-stream
// downloaders when creating a temp file's containing directory.
func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return internal.NewTransferError(internal.KindFilesystem, "prepare output directory", "could not create parent directory", err)
	}
	return nil
}
