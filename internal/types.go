package internal

import "path/filepath"

// RemoteTarget identifies a resource on the serve host: a base authority
// (bare host:port or full scheme://host[:port]) and a path rooted at "/".
type RemoteTarget struct {
	BaseHost   string
	RemotePath string
}

// FileProbe is the outcome of discovering a remote resource's size and
// range support, component E. Length is nil when the server never
// disclosed a total size.
type FileProbe struct {
	Length        *uint64
	AcceptsRanges bool
}

// Range is one contiguous, closed (inclusive-end) byte range of an
// output file, as produced by the range planner (component F).
type Range struct {
	Start        uint64
	EndInclusive uint64
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() uint64 {
	return r.EndInclusive - r.Start + 1
}

// PartProgress tracks how much of a single Range has been written so far.
type PartProgress struct {
	Start        uint64 `json:"start"`
	EndInclusive uint64 `json:"end"`
	Downloaded   uint64 `json:"downloaded"`
}

// Len is the size of the part.
func (p PartProgress) Len() uint64 {
	return p.EndInclusive - p.Start + 1
}

// Remaining is how many bytes of this part are still outstanding.
func (p PartProgress) Remaining() uint64 {
	l := p.Len()
	if p.Downloaded >= l {
		return 0
	}
	return l - p.Downloaded
}

// Done reports whether every byte of the part has been received.
func (p PartProgress) Done() bool {
	return p.Downloaded >= p.Len()
}

// PartialDownloadState is the persisted per-part progress document for a
// pending download, component C's payload. Total is nil when the remote
// length was never known (single-stream, unknown-length transfers do not
// normally persist state, but the type still accommodates it).
type PartialDownloadState struct {
	Total     *uint64        `json:"total"`
	PartCount uint64         `json:"part_count"`
	Parts     []PartProgress `json:"parts"`
}

// CompletedBytes sums the downloaded bytes across every part, clamped to
// each part's own length.
func (s *PartialDownloadState) CompletedBytes() uint64 {
	var n uint64
	for _, p := range s.Parts {
		d := p.Downloaded
		if l := p.Len(); d > l {
			d = l
		}
		n += d
	}
	return n
}

// IsComplete reports whether every part has received all of its bytes.
func (s *PartialDownloadState) IsComplete() bool {
	for _, p := range s.Parts {
		if !p.Done() {
			return false
		}
	}
	return true
}

// TempPaths locates the hidden receiving file and its state side-files for
// a final output path, component C/G/H's shared naming convention.
type TempPaths struct {
	Output     string
	Temp       string
	State      string
	StateStage string
}

// NewTempPaths derives the hidden temp file ".N.tmp" and its state
// side-files from a final output path "D/N".
func NewTempPaths(outputPath string) TempPaths {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	temp := filepath.Join(dir, "."+base+".tmp")
	return TempPaths{
		Output:     outputPath,
		Temp:       temp,
		State:      temp + ".state",
		StateStage: temp + ".state.tmp",
	}
}

// ExistingFileStrategy is the policy applied when a download's target
// already exists locally.
type ExistingFileStrategy int

const (
	Overwrite ExistingFileStrategy = iota
	Skip
	Duplicate
)

func (s ExistingFileStrategy) String() string {
	switch s {
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// UploadMode selects the wire transport a streaming upload uses.
type UploadMode int

const (
	Multipart UploadMode = iota
	RawPut
)

// UploadJob describes a single upload request, component J.
type UploadJob struct {
	Source     string
	ParentID   string
	AllowNoExt bool
	AllowAllExt bool
	Mode       UploadMode
	Token      string
}

// UploadResult mirrors the server's decoded JSON response, spec §4.J.
type UploadResult struct {
	Status      string `json:"status"`
	ID          string `json:"id"`
	DirID       string `json:"dir_id"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size_bytes"`
	MimeType    string `json:"mime_type"`
	CreatedDate string `json:"created_date"`
	DownloadURL string `json:"download_url"`
	ListURL     string `json:"list_url"`
	PoweredBy   string `json:"powered_by,omitempty"`
}

// RetryAttempt records one iteration of the retry wrapper, component D.
type RetryAttempt struct {
	Index     int
	LastError error
	Sleep     uint64 // seconds
}

// ListEntry is one child of a directory listing response, component I.
type ListEntry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	ID       string `json:"id,omitempty"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ListResponse is the decoded body of a directory-listing GET, component I.
type ListResponse struct {
	Path      string      `json:"path"`
	Entries   []ListEntry `json:"entries"`
	PoweredBy string      `json:"powered_by,omitempty"`
}
