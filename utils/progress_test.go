package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatLabel_ShortLabelUnchanged(t *testing.T) {
	if got := formatLabel("file.bin"); got != "file.bin" {
		t.Errorf("expected unchanged short label, got %q", got)
	}
}

func TestFormatLabel_LongLabelTruncatesKeepingTail(t *testing.T) {
	label := "a-very-long-filename-that-exceeds-the-limit.tar.gz"
	got := formatLabel(label)
	if len([]rune(got)) != labelMaxLength {
		t.Fatalf("expected truncated label of length %d, got %q (%d)", labelMaxLength, got, len([]rune(got)))
	}
	if !strings.HasPrefix(got, "...") {
		t.Errorf("expected truncated label to start with an ellipsis, got %q", got)
	}
	if !strings.HasSuffix(got, label[len(label)-(labelMaxLength-3):]) {
		t.Errorf("expected truncated label to keep the original tail, got %q", got)
	}
}

func TestConnectionStatusMessage(t *testing.T) {
	if got := connectionStatusMessage(1, 1); got != "" {
		t.Errorf("expected no suffix for a single-connection transfer, got %q", got)
	}
	if got := connectionStatusMessage(2, 4); got != " [2/4 connections]" {
		t.Errorf("unexpected connection suffix: %q", got)
	}
}

func TestPBProgressSink_StartAddFinishDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	sink := &PBProgressSink{out: &buf}

	sink.Start("file.bin", 100)
	sink.SetInitial(10)
	sink.Add(40)
	sink.SetActiveConnections(2, 4)
	sink.Finish()
	// A second Finish without an intervening Start must not panic.
	sink.Finish()
}

func TestPBProgressSink_MessageSuppressedWhenQuiet(t *testing.T) {
	var buf bytes.Buffer
	sink := &PBProgressSink{out: &buf, quiet: true}

	sink.Message("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got %q", buf.String())
	}
}

func TestPBProgressSink_MessageWritesLine(t *testing.T) {
	var buf bytes.Buffer
	sink := &PBProgressSink{out: &buf}

	sink.Message("hello")
	if got := buf.String(); got != "hello\n" {
		t.Errorf("expected %q, got %q", "hello\n", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
		{5368709120, "5.0 GB"},
	}
	
	for _, test := range tests {
		result := FormatBytes(test.bytes)
		if result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}
