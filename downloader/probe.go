package downloader

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"servefetch/internal"
)

// Probe determines a remote object's length and whether it accepts ranged
// requests, component E. A HEAD request is tried first; servers that don't
// answer HEAD successfully fall back to a single-byte ranged GET, whose
// response status and Content-Range header carry the same two facts.
func Probe(ctx context.Context, client *http.Client, url string) (internal.FileProbe, error) {
	if probe, ok := probeHead(ctx, client, url); ok {
		return probe, nil
	}
	return probeRangedGet(ctx, client, url)
}

func probeHead(ctx context.Context, client *http.Client, url string) (internal.FileProbe, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return internal.FileProbe{}, false
	}
	setClientHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return internal.FileProbe{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return internal.FileProbe{}, false
	}

	probe := internal.FileProbe{
		Length:        parseContentLength(resp.Header.Get("Content-Length")),
		AcceptsRanges: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
	}
	return probe, true
}

func probeRangedGet(ctx context.Context, client *http.Client, url string) (internal.FileProbe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return internal.FileProbe{}, internal.NewTransferError(internal.KindInput, "probe", "invalid request", err)
	}
	setClientHeaders(req)
	req.Header.Set("Range", "bytes=0-0")

	resp, err := client.Do(req)
	if err != nil {
		return internal.FileProbe{}, internal.NewTransferError(internal.KindTransport, "probe", "probe request failed", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	probe := internal.FileProbe{
		AcceptsRanges: resp.StatusCode == http.StatusPartialContent,
	}

	if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
		if idx := strings.LastIndexByte(contentRange, '/'); idx != -1 {
			probe.Length = parseContentLength(contentRange[idx+1:])
		}
	} else {
		probe.Length = parseContentLength(resp.Header.Get("Content-Length"))
	}

	if resp.StatusCode >= 400 {
		return internal.FileProbe{}, internal.NewTransferError(internal.KindProtocol, "probe", "server rejected probe request", nil).WithHTTPStatus(resp.StatusCode)
	}

	return probe, nil
}

func parseContentLength(s string) *uint64 {
	if s == "" {
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
