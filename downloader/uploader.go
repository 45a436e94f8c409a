package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"servefetch/internal"
)

// progressTapReader wraps an io.Reader and forwards every byte actually
// read to a progress sink, so upload progress reflects bytes that left
// the local file handle rather than bytes merely queued for sending.
type progressTapReader struct {
	r    io.Reader
	sink internal.ProgressSink
}

func (p *progressTapReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sink.Add(uint64(n))
	}
	return n, err
}

// Upload sends job.Source to the server via the transport job.Mode
// selects, component J. The entire attempt — including opening the file
// handle — is wrapped by Retry (component D), so a failed attempt always
// restarts from a freshly-opened file and zeroed progress.
func Upload(ctx context.Context, client *http.Client, baseURL string, job internal.UploadJob, sink internal.ProgressSink, maxAttempts int) (*internal.UploadResult, error) {
	info, err := os.Stat(job.Source)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindFilesystem, "upload", "cannot read source file", err)
	}
	if info.IsDir() {
		return nil, internal.NewTransferError(internal.KindInput, "upload", fmt.Sprintf("%s is a directory", job.Source), nil)
	}

	name := filepath.Base(job.Source)
	size := uint64(info.Size())
	sink.Start(name, size)

	var result *internal.UploadResult
	err = Retry(ctx, "upload", maxAttempts, func() error {
		sink.SetInitial(0)
		res, attemptErr := performUploadAttempt(ctx, client, baseURL, job, name, size, sink)
		if attemptErr != nil {
			return attemptErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	sink.Finish()
	return result, nil
}

func performUploadAttempt(ctx context.Context, client *http.Client, baseURL string, job internal.UploadJob, name string, size uint64, sink internal.ProgressSink) (*internal.UploadResult, error) {
	file, err := os.Open(job.Source)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindFilesystem, "upload", "failed to open source file", err)
	}
	defer file.Close()

	var req *http.Request
	if job.Mode == internal.RawPut {
		req, err = buildRawPutRequest(ctx, baseURL, job, name, size, file, sink)
	} else {
		req, err = buildMultipartRequest(ctx, baseURL, job, name, size, file, sink)
	}
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindTransport, "upload", "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := strings.TrimSpace(string(body))
		return nil, internal.NewTransferError(internal.KindProtocol, "upload", fmt.Sprintf("server rejected upload: %s", message), nil).WithHTTPStatus(resp.StatusCode)
	}

	var result internal.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, internal.NewTransferError(internal.KindProtocol, "upload", "malformed upload response", err)
	}
	if result.Status != "success" {
		return nil, internal.NewTransferError(internal.KindProtocol, "upload", fmt.Sprintf("server reported status %q", result.Status), nil)
	}

	return &result, nil
}

// buildRawPutRequest assembles a PUT /upload-stream request, the raw
// octet-stream transport of §4.J.
func buildRawPutRequest(ctx context.Context, baseURL string, job internal.UploadJob, name string, size uint64, file *os.File, sink internal.ProgressSink) (*http.Request, error) {
	u, err := BuildEndpointURL(baseURL, "upload-stream")
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "upload", "invalid server address", err)
	}

	q := url.Values{}
	q.Set("name", name)
	if job.ParentID != "" {
		q.Set("dir", job.ParentID)
	}
	if job.AllowNoExt {
		q.Set("allow_no_ext", "true")
	}
	u.RawQuery = q.Encode()

	body := &progressTapReader{r: file, sink: sink}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), body)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "upload", "invalid request", err)
	}
	req.ContentLength = int64(size)
	req.Header.Set("Content-Type", "application/octet-stream")
	applyUploadHeaders(req, job, name)
	return req, nil
}

// buildMultipartRequest assembles a POST /upload request carrying the
// source file as a single multipart "file" part, §4.J's other transport.
func buildMultipartRequest(ctx context.Context, baseURL string, job internal.UploadJob, name string, size uint64, file *os.File, sink internal.ProgressSink) (*http.Request, error) {
	u, err := BuildEndpointURL(baseURL, "upload")
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "upload", "invalid server address", err)
	}

	q := url.Values{}
	if job.ParentID != "" {
		q.Set("dir", job.ParentID)
	}
	if job.AllowNoExt {
		q.Set("allow_no_ext", "true")
	}
	u.RawQuery = q.Encode()

	// The multipart boundary and the file part's own header are known up
	// front and written eagerly; only the payload itself streams lazily
	// through the progress tap.
	var header bytes.Buffer
	writer := multipart.NewWriter(&header)
	if _, err := writer.CreateFormFile("file", name); err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "upload", "failed to build multipart body", err)
	}
	headerBytes := header.Bytes()

	var trailer bytes.Buffer
	trailerWriter := multipart.NewWriter(&trailer)
	trailerWriter.SetBoundary(writer.Boundary())
	trailerWriter.Close()
	trailerBytes := trailer.Bytes()

	tapped := &progressTapReader{r: file, sink: sink}
	body := io.MultiReader(bytes.NewReader(headerBytes), tapped, bytes.NewReader(trailerBytes))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, internal.NewTransferError(internal.KindInput, "upload", "invalid request", err)
	}
	req.ContentLength = int64(len(headerBytes)) + int64(size) + int64(len(trailerBytes))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	applyUploadHeaders(req, job, name)
	return req, nil
}

func applyUploadHeaders(req *http.Request, job internal.UploadJob, name string) {
	setClientHeaders(req)
	req.Header.Set("X-Serve-Token", job.Token)
	req.Header.Set("X-Upload-Filename", name)
	if job.AllowNoExt {
		req.Header.Set("X-Allow-No-Ext", "true")
	}
	if job.AllowAllExt {
		req.Header.Set("X-Allow-All-Ext", "true")
	}
}

