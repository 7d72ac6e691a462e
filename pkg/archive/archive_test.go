package archive

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, members map[string][]byte, order []string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create member: %v", err)
		}
		if _, err := w.Write(members[name]); err != nil {
			t.Fatalf("write member: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestOpenPreservesOrder(t *testing.T) {
	members := map[string][]byte{
		"zebra.txt": []byte("last alphabetically, first in the archive"),
		"alpha.txt": []byte("first alphabetically, second in the archive"),
		"mid.txt":   []byte("middle"),
	}
	order := []string{"zebra.txt", "alpha.txt", "mid.txt"}

	r, err := Open(writeZip(t, members, order))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	entries := r.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range order {
		if entries[i].Path != want {
			t.Errorf("entry %d = %q, want %q (order must never be sorted)", i, entries[i].Path, want)
		}
	}
}

func TestEntryMetadata(t *testing.T) {
	payload := []byte("some deterministic payload for checksum verification")
	r, err := Open(writeZip(t, map[string][]byte{"file.bin": payload}, []string{"file.bin"}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	entry := r.Entries()[0]
	if entry.UncompressedSize != int64(len(payload)) {
		t.Errorf("UncompressedSize = %d, want %d", entry.UncompressedSize, len(payload))
	}
	if want := crc32.ChecksumIEEE(payload); entry.CRC32 != want {
		t.Errorf("CRC32 = %#x, want %#x", entry.CRC32, want)
	}
}

func TestExtract(t *testing.T) {
	members := map[string][]byte{
		"a.txt": []byte("payload a"),
		"b.txt": bytes.Repeat([]byte("repeated content compresses well "), 100),
	}
	r, err := Open(writeZip(t, members, []string{"a.txt", "b.txt"}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	for _, entry := range r.Entries() {
		data, err := r.Extract(entry)
		if err != nil {
			t.Fatalf("Extract %s: %v", entry.Path, err)
		}
		if !bytes.Equal(data, members[entry.Path]) {
			t.Errorf("extracted %s does not round-trip", entry.Path)
		}
	}
}

func TestExtractForeignEntry(t *testing.T) {
	r1, err := Open(writeZip(t, map[string][]byte{"a.txt": []byte("a")}, []string{"a.txt"}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r1.Close()
	r2, err := Open(writeZip(t, map[string][]byte{"b.txt": []byte("b")}, []string{"b.txt"}))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r2.Close()

	if _, err := r2.Extract(r1.Entries()[0]); err == nil {
		t.Error("extracting an entry from another archive must fail")
	}
}

func TestOpenRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a.zip")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for non-zip file")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Error("expected error for missing file")
	}
}
