package downloader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"servefetch/internal"
	"servefetch/utils"
)

const copyBufferSize = 16 * 1024

// DownloadSingleStream performs a resumable single-connection download,
// component G. It resumes from whatever bytes already sit in the hidden
// temp file when the server accepts ranges, restarting from scratch when it
// doesn't (or when a resume attempt gets back something other than a 206).
func DownloadSingleStream(ctx context.Context, client *http.Client, remoteURL, outputPath, label string, total *uint64, acceptRanges bool, sink internal.ProgressSink) (uint64, error) {
	paths := internal.NewTempPaths(outputPath)
	Track(paths.Temp)

	if total != nil && *total == 0 {
		return finalizeEmptyFile(paths.Temp, outputPath)
	}

	existing := existingSize(paths.Temp)

	if total != nil {
		if existing >= *total {
			return FinalizeTempFile(paths.Temp, outputPath, total)
		}
		if existing > *total {
			os.Truncate(paths.Temp, int64(*total))
			existing = *total
		}
	}

	if existing > 0 && !acceptRanges {
		os.Remove(paths.Temp)
		existing = 0
	}

	resp, err := doGet(ctx, client, remoteURL, existing, acceptRanges)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if acceptRanges && existing > 0 && resp.StatusCode != http.StatusPartialContent {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		os.Remove(paths.Temp)
		existing = 0

		resp, err = doGet(ctx, client, remoteURL, 0, false)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
	}

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return 0, internal.NewTransferError(internal.KindProtocol, "download", "server rejected download request", nil).WithHTTPStatus(resp.StatusCode)
	}

	file, err := os.OpenFile(paths.Temp, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to open temp file", err)
	}
	if _, err := file.Seek(int64(existing), io.SeekStart); err != nil {
		file.Close()
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to seek temp file", err)
	}
	writer := bufio.NewWriterSize(file, copyBufferSize)

	var displayTotal uint64
	if total != nil {
		displayTotal = *total
	}
	sink.Start(label, displayTotal)
	if existing > 0 {
		sink.SetInitial(existing)
	}

	buffer := make([]byte, copyBufferSize)
	for {
		select {
		case <-ctx.Done():
			writer.Flush()
			file.Close()
			return 0, ctx.Err()
		default:
		}

		n, rerr := resp.Body.Read(buffer)
		if n > 0 {
			if _, werr := writer.Write(buffer[:n]); werr != nil {
				file.Close()
				return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed writing to output file", werr)
			}
			sink.Add(uint64(n))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			file.Close()
			return 0, internal.NewTransferError(internal.KindTransport, "download", "failed reading response body", rerr)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to flush output file", err)
	}
	if err := file.Close(); err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to close output file", err)
	}
	sink.Finish()

	return FinalizeTempFile(paths.Temp, outputPath, total)
}

func existingSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}

func doGet(ctx context.Context, client *http.Client, remoteURL string, rangeStart uint64, acceptRanges bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "download", "invalid request", err)
	}
	setClientHeaders(req)
	if acceptRanges && rangeStart > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", rangeStart))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindTransport, "download", "download request failed", err)
	}
	return resp, nil
}

func finalizeEmptyFile(tempPath, outputPath string) (uint64, error) {
	f, err := os.Create(tempPath)
	if err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "download", "failed to create temp file", err)
	}
	f.Close()

	zero := uint64(0)
	return FinalizeTempFile(tempPath, outputPath, &zero)
}

// FinalizeTempFile moves a completed temp file into place and clears its
// resume state, shared by the single- and multi-stream downloaders.
func FinalizeTempFile(tempPath, outputPath string, expectedTotal *uint64) (uint64, error) {
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return 0, internal.NewTransferError(internal.KindFilesystem, "finalize", "failed to remove existing file", err)
		}
	}
	if err := utils.NewFileOperations().AtomicRename(tempPath, outputPath); err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "finalize", "failed to move temp file into place", err)
	}
	Untrack(tempPath)
	ClearState(tempPath)

	info, err := os.Stat(outputPath)
	if err != nil {
		return 0, internal.NewTransferError(internal.KindFilesystem, "finalize", "failed to stat downloaded file", err)
	}
	if expectedTotal != nil && uint64(info.Size()) != *expectedTotal {
		return 0, internal.NewTransferError(internal.KindIntegrity, "finalize", fmt.Sprintf("downloaded file size mismatch (expected %d bytes, found %d)", *expectedTotal, info.Size()), nil)
	}
	return uint64(info.Size()), nil
}
