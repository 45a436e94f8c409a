package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe_HeadSuccessReportsLengthAndRanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD request, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "12345")
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	probe, err := Probe(context.Background(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probe.Length == nil || *probe.Length != 12345 {
		t.Errorf("expected length 12345, got %v", probe.Length)
	}
	if !probe.AcceptsRanges {
		t.Error("expected AcceptsRanges true")
	}
}

func TestProbe_HeadFailsFallsBackToRangedGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Range") != "bytes=0-0" {
			t.Errorf("expected ranged GET, got Range=%q", r.Header.Get("Range"))
		}
		w.Header().Set("Content-Range", "bytes 0-0/99999")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	probe, err := Probe(context.Background(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probe.Length == nil || *probe.Length != 99999 {
		t.Errorf("expected length 99999, got %v", probe.Length)
	}
	if !probe.AcceptsRanges {
		t.Error("expected AcceptsRanges true from 206 status")
	}
}

func TestProbe_NoRangeSupportFallsBackToContentLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	probe, err := Probe(context.Background(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if probe.Length == nil || *probe.Length != 42 {
		t.Errorf("expected length 42, got %v", probe.Length)
	}
	if probe.AcceptsRanges {
		t.Error("expected AcceptsRanges false for a plain 200 response")
	}
}

func TestProbe_ServerErrorReturnsProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Probe(context.Background(), server.Client(), server.URL)
	if err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
