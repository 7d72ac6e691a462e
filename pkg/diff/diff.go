// Package diff computes byte-level differences between two payloads as
// insertion and removal ranges, with inference of moved ranges.
//
// The comparison trims the common prefix and suffix first, then runs a Myers
// shortest-edit-script walk over the remaining middle window. Pathological
// middles (too large, or requiring too many edits) collapse into a single
// replace pair; the range detail is lost but the byte totals stay exact,
// which is all the tolerance check needs.
package diff

import "bytes"

// Span is a contiguous byte range, identified by offset and length.
type Span struct {
	// Offset is the range start within its payload
	Offset int

	// Length is the range length in bytes
	Length int
}

// Result describes the differences between an old and a new payload.
type Result struct {
	// Inserted are ranges present in the new payload only (offsets into new)
	Inserted []Span

	// Removed are ranges present in the old payload only (offsets into old)
	Removed []Span

	// Moved counts removed/inserted range pairs with byte-identical content,
	// i.e. content that relocated rather than changed. Informational only;
	// moved ranges still count toward TotalChanges.
	Moved int
}

// TotalChanges is the total number of differing bytes: the sum of all
// inserted range lengths plus all removed range lengths.
func (r Result) TotalChanges() int {
	total := 0
	for _, s := range r.Inserted {
		total += s.Length
	}
	for _, s := range r.Removed {
		total += s.Length
	}
	return total
}

// Identical reports whether the payloads had no differences at all.
func (r Result) Identical() bool {
	return len(r.Inserted) == 0 && len(r.Removed) == 0
}

const (
	// maxMyersWindow bounds the middle window the Myers walk will attempt
	maxMyersWindow = 1 << 16

	// minMoveLength is the smallest range considered for move inference;
	// tiny ranges match by coincidence too often to be meaningful
	minMoveLength = 8
)

// Compare diffs oldData against newData.
func Compare(oldData, newData []byte) Result {
	prefix := commonPrefix(oldData, newData)
	suffix := commonSuffix(oldData[prefix:], newData[prefix:])

	a := oldData[prefix : len(oldData)-suffix]
	b := newData[prefix : len(newData)-suffix]

	var result Result
	switch {
	case len(a) == 0 && len(b) == 0:
		return result
	case len(a) == 0:
		result.Inserted = []Span{{Offset: prefix, Length: len(b)}}
	case len(b) == 0:
		result.Removed = []Span{{Offset: prefix, Length: len(a)}}
	case len(a)+len(b) > maxMyersWindow:
		result.Removed = []Span{{Offset: prefix, Length: len(a)}}
		result.Inserted = []Span{{Offset: prefix, Length: len(b)}}
	default:
		removed, inserted, ok := myers(a, b)
		if !ok {
			removed = []Span{{Offset: 0, Length: len(a)}}
			inserted = []Span{{Offset: 0, Length: len(b)}}
		}
		result.Removed = shift(removed, prefix)
		result.Inserted = shift(inserted, prefix)
	}

	result.Moved = inferMoves(oldData, newData, result.Removed, result.Inserted)
	return result
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func shift(spans []Span, by int) []Span {
	for i := range spans {
		spans[i].Offset += by
	}
	return spans
}

// myers runs the greedy O(ND) shortest-edit-script algorithm and backtracks
// the trace into coalesced removal/insertion spans. It reports ok=false when
// the edit distance search is exhausted (cannot happen for windows within
// maxMyersWindow, but kept as a guard).
func myers(a, b []byte) (removed, inserted []Span, ok bool) {
	n, m := len(a), len(b)
	maxD := n + m
	offset := maxD

	v := make([]int, 2*maxD+1)
	var trace [][]int
	snapshot := func() {
		s := make([]int, len(v))
		copy(s, v)
		trace = append(trace, s)
	}

	for d := 0; d <= maxD; d++ {
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1] // down: insertion
			} else {
				x = v[offset+k-1] + 1 // right: removal
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				snapshot()
				return backtrack(trace, n, m, offset)
			}
		}
		snapshot()
	}
	return nil, nil, false
}

// backtrack walks the Myers trace from (n, m) to (0, 0), emitting one edit
// per step and coalescing adjacent edits into spans.
func backtrack(trace [][]int, n, m, offset int) (removed, inserted []Span, ok bool) {
	x, y := n, m
	for d := len(trace) - 1; d > 0; d-- {
		v := trace[d-1]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		// rewind the diagonal (matching) run
		for x > prevX && y > prevY {
			x--
			y--
		}

		if x == prevX {
			// vertical step: one byte inserted at new position prevY
			inserted = appendByte(inserted, prevY)
			y = prevY
		} else {
			// horizontal step: one byte removed at old position prevX
			removed = appendByte(removed, prevX)
			x = prevX
		}
	}
	reverseSpans(removed)
	reverseSpans(inserted)
	return removed, inserted, true
}

// appendByte grows the most recent span backwards by one byte when adjacent,
// otherwise starts a new single-byte span. Backtracking emits positions in
// descending order, so adjacency means pos+1 == last span's offset.
func appendByte(spans []Span, pos int) []Span {
	if len(spans) > 0 {
		last := &spans[len(spans)-1]
		if last.Offset == pos+1 {
			last.Offset = pos
			last.Length++
			return spans
		}
	}
	return append(spans, Span{Offset: pos, Length: 1})
}

func reverseSpans(spans []Span) {
	for i, j := 0, len(spans)-1; i < j; i, j = i+1, j-1 {
		spans[i], spans[j] = spans[j], spans[i]
	}
}

// inferMoves pairs removed ranges with byte-identical inserted ranges.
// Each range participates in at most one pair.
func inferMoves(oldData, newData []byte, removed, inserted []Span) int {
	if len(removed) == 0 || len(inserted) == 0 {
		return 0
	}
	used := make([]bool, len(inserted))
	moves := 0
	for _, r := range removed {
		if r.Length < minMoveLength {
			continue
		}
		content := oldData[r.Offset : r.Offset+r.Length]
		for i, ins := range inserted {
			if used[i] || ins.Length != r.Length {
				continue
			}
			if bytes.Equal(content, newData[ins.Offset:ins.Offset+ins.Length]) {
				used[i] = true
				moves++
				break
			}
		}
	}
	return moves
}
