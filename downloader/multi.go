package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"servefetch/internal"
)

// partialStateUpdateThreshold bounds how often a worker persists its
// progress: every 8 MiB downloaded, not every read, so a crash loses at
// most that much resumable progress per connection.
const partialStateUpdateThreshold = 8 * 1024 * 1024

// DownloadMultiStream downloads a known-length, range-capable remote object
// across state.PartCount parallel connections, component H. Each worker
// owns a disjoint byte range and its own file handle seeked to that range,
// so writes never overlap and need no cross-worker coordination beyond the
// shared state used for persistence. The first worker error cancels every
// other worker and is returned; partial progress already persisted to disk
// survives for the next resume attempt.
func DownloadMultiStream(ctx context.Context, client *http.Client, remoteURL, outputPath, label string, total uint64, requestedParts int, sink internal.ProgressSink) (uint64, error) {
	paths := internal.NewTempPaths(outputPath)
	Track(paths.Temp)

	state := LoadState(paths.Temp)
	if state == nil {
		state = NewPartialDownloadState(&total, requestedParts)
	}
	EnsureLayout(state, total, requestedParts)
	totalConnections := int(state.PartCount)

	file, err := os.OpenFile(paths.Temp, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to open temp file", err)
	}
	if err := file.Truncate(int64(total)); err != nil {
		file.Close()
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to size temp file", err)
	}
	file.Close()

	SaveState(paths.Temp, state)

	sink.Start(label, total)
	sink.SetActiveConnections(0, totalConnections)
	if completed := state.CompletedBytes(); completed > 0 {
		sink.SetInitial(completed)
	}

	type partWork struct {
		index      int
		start, end uint64
		downloaded uint64
	}

	var items []partWork
	for i, p := range state.Parts {
		if p.Done() {
			continue
		}
		items = append(items, partWork{index: i, start: p.Start, end: p.EndInclusive, downloaded: p.Downloaded})
	}

	if len(items) == 0 {
		sink.Finish()
		return FinalizeTempFile(paths.Temp, outputPath, &total)
	}

	var mu sync.Mutex
	var active int32

	group, gctx := errgroup.WithContext(ctx)
	for _, w := range items {
		w := w
		group.Go(func() (workErr error) {
			n := atomic.AddInt32(&active, 1)
			sink.SetActiveConnections(int(n), totalConnections)
			defer func() {
				n := atomic.AddInt32(&active, -1)
				sink.SetActiveConnections(int(n), totalConnections)
			}()
			defer func() {
				if r := recover(); r != nil {
					workErr = workerPanicError(w.index, r)
				}
			}()

			return downloadPart(gctx, client, remoteURL, paths.Temp, w.index, w.start, w.end, w.downloaded, state, &mu, sink)
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}

	sink.Finish()
	return FinalizeTempFile(paths.Temp, outputPath, &total)
}

// workerPanicError converts a recovered panic value from a download worker
// into a reportable error, matching the original's handle.join() panic
// payload handling: an error or string payload is preserved verbatim, any
// other value falls back to its %v formatting.
func workerPanicError(index int, r interface{}) error {
	payload := fmt.Sprintf("%v", r)
	switch v := r.(type) {
	case error:
		payload = v.Error()
	case string:
		payload = v
	}
	return internal.NewTransferError(internal.KindTransport, "download", fmt.Sprintf("download worker panicked for part %d: %s", index, payload), nil)
}

func downloadPart(ctx context.Context, client *http.Client, remoteURL, tempPath string, index int, start, end, downloaded uint64, state *internal.PartialDownloadState, mu *sync.Mutex, sink internal.ProgressSink) error {
	rangeStart := start + downloaded

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return internal.NewTransferError(internal.KindInput, "download", "invalid request", err)
	}
	setClientHeaders(req)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rangeStart, end))

	resp, err := client.Do(req)
	if err != nil {
		return internal.NewTransferError(internal.KindTransport, "download", fmt.Sprintf("request failed for part %d", index), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		io.Copy(io.Discard, resp.Body)
		return internal.NewTransferError(internal.KindProtocol, "download", fmt.Sprintf("server did not honor range request for part %d", index), nil).WithHTTPStatus(resp.StatusCode)
	}

	file, err := os.OpenFile(tempPath, os.O_WRONLY, 0o644)
	if err != nil {
		return internal.NewTransferError(internal.KindFilesystem, "download", "failed to open temp file", err)
	}
	defer file.Close()

	if _, err := file.Seek(int64(rangeStart), io.SeekStart); err != nil {
		return internal.NewTransferError(internal.KindFilesystem, "download", "failed to seek temp file", err)
	}

	partLength := end - start + 1
	localDownloaded := downloaded
	if localDownloaded > partLength {
		localDownloaded = partLength
	}
	remaining := partLength - localDownloaded
	lastPersisted := localDownloaded
	buffer := make([]byte, copyBufferSize)

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		toRead := uint64(len(buffer))
		if remaining < toRead {
			toRead = remaining
		}

		n, rerr := resp.Body.Read(buffer[:toRead])
		if n > 0 {
			if _, werr := file.Write(buffer[:n]); werr != nil {
				return internal.NewTransferError(internal.KindFilesystem, "download", fmt.Sprintf("failed writing part %d to temp file", index), werr)
			}
			remaining -= uint64(n)
			localDownloaded += uint64(n)
			sink.Add(uint64(n))

			if localDownloaded-lastPersisted >= partialStateUpdateThreshold {
				mu.Lock()
				state.Parts[index].Downloaded = localDownloaded
				SaveState(tempPath, state)
				mu.Unlock()
				lastPersisted = localDownloaded
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return internal.NewTransferError(internal.KindTransport, "download", fmt.Sprintf("failed reading response for part %d", index), rerr)
		}
	}

	if localDownloaded > lastPersisted {
		mu.Lock()
		state.Parts[index].Downloaded = localDownloaded
		SaveState(tempPath, state)
		mu.Unlock()
	}

	if remaining > 0 {
		return internal.NewTransferError(internal.KindTransport, "download", fmt.Sprintf("download interrupted for part %d (%d bytes remaining)", index, remaining), nil)
	}

	return nil
}
