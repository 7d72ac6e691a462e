package diff

import (
	"bytes"
	"testing"
)

func TestCompareIdentical(t *testing.T) {
	data := []byte("the same payload on both sides")
	result := Compare(data, data)
	if !result.Identical() {
		t.Fatalf("expected identical result, got %+v", result)
	}
	if result.TotalChanges() != 0 {
		t.Errorf("TotalChanges = %d, want 0", result.TotalChanges())
	}
}

func TestCompareSingleContiguousInsertion(t *testing.T) {
	old := []byte("aaaabbbbcccc")
	inserted := []byte("XYZ")
	updated := append(append(append([]byte{}, old[:4]...), inserted...), old[4:]...)

	result := Compare(old, updated)
	if got := result.TotalChanges(); got != len(inserted) {
		t.Fatalf("TotalChanges = %d, want %d", got, len(inserted))
	}
	if len(result.Removed) != 0 {
		t.Errorf("unexpected removals: %+v", result.Removed)
	}
	if len(result.Inserted) != 1 {
		t.Fatalf("expected one inserted span, got %+v", result.Inserted)
	}
	span := result.Inserted[0]
	if span.Offset != 4 || span.Length != 3 {
		t.Errorf("inserted span = %+v, want offset 4 length 3", span)
	}
}

func TestCompareSingleRemoval(t *testing.T) {
	old := []byte("aaaaXXbbbb")
	updated := []byte("aaaabbbb")

	result := Compare(old, updated)
	if got := result.TotalChanges(); got != 2 {
		t.Fatalf("TotalChanges = %d, want 2", got)
	}
	if len(result.Inserted) != 0 {
		t.Errorf("unexpected insertions: %+v", result.Inserted)
	}
}

func TestCompareReplacement(t *testing.T) {
	old := []byte("prefix-OLD-suffix")
	updated := []byte("prefix-NEW-suffix")

	result := Compare(old, updated)
	// one byte-for-byte replacement of 3 bytes: 3 removed + 3 inserted
	if got := result.TotalChanges(); got != 6 {
		t.Fatalf("TotalChanges = %d, want 6", got)
	}
}

func TestCompareEmptySides(t *testing.T) {
	if got := Compare(nil, []byte("abc")).TotalChanges(); got != 3 {
		t.Errorf("insert-all TotalChanges = %d, want 3", got)
	}
	if got := Compare([]byte("abc"), nil).TotalChanges(); got != 3 {
		t.Errorf("remove-all TotalChanges = %d, want 3", got)
	}
	if got := Compare(nil, nil).TotalChanges(); got != 0 {
		t.Errorf("empty TotalChanges = %d, want 0", got)
	}
}

func TestCompareMoveInference(t *testing.T) {
	block := []byte("0123456789ABCDEF") // 16 bytes, above the move threshold
	old := append(append([]byte{}, block...), []byte("tail-tail-tail")...)
	updated := append(append([]byte{}, []byte("tail-tail-tail")...), block...)

	result := Compare(old, updated)
	if result.TotalChanges() == 0 {
		t.Fatal("moved content must still count as changes")
	}
	if result.Moved == 0 {
		t.Errorf("expected at least one inferred move, got %+v", result)
	}
}

func TestCompareLargeWindowCollapses(t *testing.T) {
	old := bytes.Repeat([]byte{0xAA}, maxMyersWindow)
	updated := bytes.Repeat([]byte{0xBB}, maxMyersWindow)

	result := Compare(old, updated)
	if len(result.Removed) != 1 || len(result.Inserted) != 1 {
		t.Fatalf("expected single replace pair, got %+v", result)
	}
	if got := result.TotalChanges(); got != 2*maxMyersWindow {
		t.Errorf("TotalChanges = %d, want %d", got, 2*maxMyersWindow)
	}
}

func TestCompareSpansAreCoalesced(t *testing.T) {
	old := []byte("aaaa1111bbbb")
	updated := []byte("aaaa2222bbbb")

	result := Compare(old, updated)
	if len(result.Inserted) != 1 || len(result.Removed) != 1 {
		t.Fatalf("expected coalesced spans, got inserted %+v removed %+v", result.Inserted, result.Removed)
	}
	if result.Inserted[0].Length != 4 || result.Removed[0].Length != 4 {
		t.Errorf("span lengths = %d/%d, want 4/4", result.Inserted[0].Length, result.Removed[0].Length)
	}
}
