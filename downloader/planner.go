package downloader

import "servefetch/internal"

// MaxConnections bounds the requested part count for a multi-stream
// download, §5 "Resource budgets": P = min(requested, 16).
const MaxConnections = 16

// Plan splits a known total length into contiguous, non-overlapping byte
// ranges of near-equal size, component F. Chunk size is ceil(total/parts);
// part i starts at i*chunkSize and ends at min(i*chunkSize+chunkSize-1,
// total-1). Parts whose start would be >= total are omitted, so
// parts > total collapses to `total` single-byte parts.
func Plan(total uint64, parts int) []internal.Range {
	if parts <= 0 || total == 0 {
		return nil
	}

	chunkSize := (total + uint64(parts) - 1) / uint64(parts)
	out := make([]internal.Range, 0, parts)

	for i := 0; i < parts; i++ {
		start := uint64(i) * chunkSize
		if start >= total {
			break
		}
		end := start + chunkSize - 1
		if end > total-1 {
			end = total - 1
		}
		out = append(out, internal.Range{Start: start, EndInclusive: end})
	}

	return out
}

// ClampConnections applies the §5 resource budget P = min(requested, 16),
// and floors at 1.
func ClampConnections(requested int) int {
	if requested < 1 {
		return 1
	}
	if requested > MaxConnections {
		return MaxConnections
	}
	return requested
}
