package downloader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"servefetch/internal"
)

func uint64ptr(v uint64) *uint64 { return &v }

func TestDownloadSingleStream_FullDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "file.bin")

	total := uint64ptr(uint64(len(payload)))
	n, err := DownloadSingleStream(context.Background(), server.Client(), server.URL, output, "file.bin", total, false, internal.NopProgressSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != uint64(len(payload)) {
		t.Errorf("expected %d bytes, got %d", len(payload), n)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("output content mismatch")
	}
}

func TestDownloadSingleStream_ResumesFromExistingBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("b"), 2000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Write(payload)
			return
		}
		spec := strings.TrimSuffix(strings.TrimPrefix(rangeHeader, "bytes="), "-")
		start, err := strconv.Atoi(spec)
		if err != nil {
			t.Fatalf("bad range header %q: %v", rangeHeader, err)
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(payload)-1, len(payload)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(payload[start:])
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "file.bin")
	paths := internal.NewTempPaths(output)
	if err := os.WriteFile(paths.Temp, payload[:500], 0o644); err != nil {
		t.Fatalf("seeding temp file: %v", err)
	}

	total := uint64ptr(uint64(len(payload)))
	n, err := DownloadSingleStream(context.Background(), server.Client(), server.URL, output, "file.bin", total, true, internal.NopProgressSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != uint64(len(payload)) {
		t.Errorf("expected %d bytes, got %d", len(payload), n)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("resumed output content mismatch")
	}
}

func TestDownloadSingleStream_ZeroLengthFinalizesEmptyFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be contacted for a zero-length file")
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "empty.bin")

	n, err := DownloadSingleStream(context.Background(), server.Client(), server.URL, output, "empty.bin", uint64ptr(0), true, internal.NopProgressSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 bytes, got %d", n)
	}
	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty output file, got size %d", info.Size())
	}
}

func TestDownloadSingleStream_AlreadyCompleteFinalizesWithoutRequest(t *testing.T) {
	payload := bytes.Repeat([]byte("c"), 300)
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "file.bin")
	paths := internal.NewTempPaths(output)
	if err := os.WriteFile(paths.Temp, payload, 0o644); err != nil {
		t.Fatalf("seeding temp file: %v", err)
	}

	total := uint64ptr(uint64(len(payload)))
	n, err := DownloadSingleStream(context.Background(), server.Client(), server.URL, output, "file.bin", total, true, internal.NopProgressSink{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != uint64(len(payload)) {
		t.Errorf("expected %d bytes, got %d", len(payload), n)
	}
	if requested {
		t.Error("expected no request when the temp file is already complete")
	}
}

func TestDownloadSingleStream_ServerErrorReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	output := filepath.Join(dir, "file.bin")

	_, err := DownloadSingleStream(context.Background(), server.Client(), server.URL, output, "file.bin", uint64ptr(10), false, internal.NopProgressSink{})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
