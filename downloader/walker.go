package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"servefetch/internal"
	"servefetch/utils"
)

// FetchListing requests remote as a directory listing and returns it, or
// nil if the server reports remote is not a directory (a plain 200 whose
// body doesn't parse as a listing, or a 404). Any other failure is
// returned as an error — a listing attempt that the server actively
// rejects is not the same thing as "this path is a file".
func FetchListing(ctx context.Context, client *http.Client, baseURL, remote string) (*internal.ListResponse, error) {
	u, err := NormalizeURL(baseURL, remote)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "list", "invalid remote path", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "list", "invalid request", err)
	}
	setClientHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindTransport, "list", "listing request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, internal.NewTransferError(internal.KindProtocol, "list", "listing request failed", nil).WithHTTPStatus(resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var listing internal.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		// The body claimed to be JSON but isn't a listing: treat this
		// path as a file rather than failing the caller outright.
		return nil, nil
	}
	return &listing, nil
}

// EnsureLeadingSlash and EnsureTrailingSlash normalize a remote path's
// slash conventions before it is combined with a base host.
func EnsureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

func EnsureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return strings.TrimRight(p, "/") + "/"
}

// DeriveFileName picks a local file name for a remote path that has no
// explicit --out override: the final path segment, or "download" when the
// remote path has none (e.g. the server root).
func DeriveFileName(remote string) string {
	clean := strings.TrimRight(remote, "/")
	name := path.Base(clean)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

// DeriveDirectoryName is DeriveFileName's counterpart for a directory
// target; it falls back to "download" for the server root itself.
func DeriveDirectoryName(remote string) string {
	clean := strings.TrimRight(remote, "/")
	if clean == "" {
		return "download"
	}
	return DeriveFileName(remote)
}

// TransferOptions bundles the knobs a single download or a recursive walk
// shares across every file it touches.
type TransferOptions struct {
	Connections      int
	ExistingStrategy internal.ExistingFileStrategy
	Recursive        bool
	MaxAttempts      int
}

// TransferOutcome reports what happened to one remote path. Bytes is the
// final size on disk; it is only populated for a single-file transfer, not
// a directory walk or a skip.
type TransferOutcome struct {
	Path    string
	Skipped bool
	Bytes   uint64
}

// DownloadTarget is the single entry point for "download this remote
// path": it asks FetchListing whether remote is a directory and dispatches
// to a recursive walk or a single-file transfer accordingly, component I.
func DownloadTarget(ctx context.Context, client *http.Client, baseURL, remote, outOverride string, opts TransferOptions, sink internal.ProgressSink) (*TransferOutcome, error) {
	trimmed := strings.TrimSpace(remote)
	if trimmed == "" {
		return nil, internal.NewTransferError(internal.KindInput, "download", "remote path is required", nil)
	}
	remote = EnsureLeadingSlash(trimmed)

	listing, err := FetchListing(ctx, client, baseURL, remote)
	if err != nil {
		return nil, err
	}

	fileOps := utils.NewFileOperations()

	if listing != nil {
		if !opts.Recursive {
			return nil, internal.NewTransferError(internal.KindInput, "download", fmt.Sprintf("%s is a directory. Pass --recursive to download it.", remote), nil)
		}

		localDir := outOverride
		if localDir == "" {
			localDir = DeriveDirectoryName(remote)
		}

		switch opts.ExistingStrategy {
		case internal.Duplicate:
			if fileOps.FileExists(localDir) {
				localDir = fileOps.NextAvailablePath(localDir)
			}
		case internal.Skip:
			if fileOps.FileExists(localDir) {
				sink.Message(fmt.Sprintf("Skipping download; local directory %s already exists", localDir))
				return &TransferOutcome{Path: localDir, Skipped: true}, nil
			}
		}

		remoteDir := EnsureTrailingSlash(remote)
		if err := Walk(ctx, client, baseURL, remoteDir, localDir, *listing, opts, sink); err != nil {
			return nil, err
		}
		return &TransferOutcome{Path: localDir}, nil
	}

	outputPath := outOverride
	if outputPath == "" {
		outputPath = DeriveFileName(remote)
	}
	return downloadOneFile(ctx, client, baseURL, remote, outputPath, opts, sink)
}

// Walk recursively mirrors a remote directory listing into localDir,
// applying opts.ExistingStrategy at every directory and file it visits.
func Walk(ctx context.Context, client *http.Client, baseURL, remoteDir, localDir string, listing internal.ListResponse, opts TransferOptions, sink internal.ProgressSink) error {
	fileOps := utils.NewFileOperations()
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return internal.NewTransferError(internal.KindFilesystem, "download", fmt.Sprintf("failed to create directory %s", localDir), err)
	}

	for _, entry := range listing.Entries {
		childRemote := remoteDir + entry.Name
		childLocal := path.Join(localDir, entry.Name)

		if entry.IsDir {
			targetLocal := childLocal
			if opts.ExistingStrategy == internal.Duplicate && fileOps.FileExists(targetLocal) {
				targetLocal = fileOps.NextAvailablePath(targetLocal)
			}
			if opts.ExistingStrategy == internal.Skip && fileOps.FileExists(targetLocal) {
				sink.Message(fmt.Sprintf("Skipping download of directory %s; already exists", targetLocal))
				continue
			}

			childRemoteDir := EnsureTrailingSlash(childRemote)
			childListing, err := FetchListing(ctx, client, baseURL, childRemoteDir)
			if err != nil {
				return err
			}
			if childListing == nil {
				return internal.NewTransferError(internal.KindProtocol, "download", fmt.Sprintf("failed to list directory %s", childRemoteDir), nil)
			}
			if err := Walk(ctx, client, baseURL, childRemoteDir, targetLocal, *childListing, opts, sink); err != nil {
				return err
			}
			continue
		}

		if _, err := downloadOneFile(ctx, client, baseURL, childRemote, childLocal, opts, sink); err != nil {
			return err
		}
	}

	return nil
}

// downloadOneFile probes remote, applies the existing-file strategy, and
// dispatches to DownloadSingleStream or DownloadMultiStream depending on
// what the probe and the requested connection count allow.
func downloadOneFile(ctx context.Context, client *http.Client, baseURL, remote, outputPath string, opts TransferOptions, sink internal.ProgressSink) (*TransferOutcome, error) {
	fileOps := utils.NewFileOperations()

	url, err := BuildEndpointURL(baseURL, remote)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "download", "invalid remote path", err)
	}

	probe, err := Probe(ctx, client, url.String())
	if err != nil {
		internal.LogWarn("probe failed for %s: %v; falling back to unknown-length single-stream download", remote, err)
		probe = internal.FileProbe{Length: nil, AcceptsRanges: false}
	}

	finalOutput := outputPath
	if opts.ExistingStrategy == internal.Duplicate {
		finalOutput = fileOps.NextAvailablePath(outputPath)
	}

	if opts.ExistingStrategy == internal.Skip && fileOps.FileExists(finalOutput) {
		size, sizeErr := fileOps.GetFileSize(finalOutput)
		sink.Message(skipMessage(finalOutput, size, sizeErr, probe))
		return &TransferOutcome{Path: finalOutput, Skipped: true}, nil
	}

	if err := fileOps.EnsureDir(finalOutput); err != nil {
		return nil, internal.NewTransferError(internal.KindFilesystem, "download", "failed to create parent directory", err)
	}

	guard := NewCleanupGuard()
	defer guard.Release()

	label := path.Base(finalOutput)
	requestedConnections := ClampConnections(opts.Connections)
	multiSupported := probe.Length != nil && probe.AcceptsRanges && requestedConnections > 1

	var bytesWritten uint64
	err = Retry(ctx, "download", opts.MaxAttempts, func() error {
		var attemptErr error
		if multiSupported {
			bytesWritten, attemptErr = DownloadMultiStream(ctx, client, url.String(), finalOutput, label, *probe.Length, requestedConnections, sink)
		} else {
			bytesWritten, attemptErr = DownloadSingleStream(ctx, client, url.String(), finalOutput, label, probe.Length, probe.AcceptsRanges, sink)
		}
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	guard.Disarm()

	return &TransferOutcome{Path: finalOutput, Bytes: bytesWritten}, nil
}

func skipMessage(outputPath string, size int64, sizeErr error, probe internal.FileProbe) string {
	if sizeErr != nil {
		return fmt.Sprintf("Skipping download; %s already exists but metadata could not be read: %v", outputPath, sizeErr)
	}
	if probe.Length == nil {
		return fmt.Sprintf("Skipping download; %s already exists (%d bytes) and remote size is unknown", outputPath, size)
	}
	if uint64(size) == *probe.Length {
		return fmt.Sprintf("Skipping download; %s already exists with matching size (%d bytes)", outputPath, *probe.Length)
	}
	return fmt.Sprintf("Skipping download; %s exists (%d bytes) but remote reports %d bytes. Rerun without --skip to replace it.", outputPath, size, *probe.Length)
}
