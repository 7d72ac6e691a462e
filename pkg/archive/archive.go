// Package archive opens zip-format application archives and exposes their
// members in on-disk directory order.
//
// Ordering matters: reproducible-build comparison walks two archives
// positionally, so entries are never sorted or looked up by name here.
package archive

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Entry is an immutable snapshot of one zip member.
type Entry struct {
	// Path is the member name as stored in the archive
	Path string

	// UncompressedSize is the declared size of the decompressed payload
	UncompressedSize int64

	// CRC32 is the declared checksum of the decompressed payload
	CRC32 uint32

	index int
}

// Reader provides ordered entry listing and random-access extraction for a
// local zip archive.
type Reader struct {
	path    string
	zr      *zip.ReadCloser
	entries []Entry
}

// Open opens path as a zip archive. It fails with an open error if the file
// is missing or not a valid archive.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	// klauspost's flate is a drop-in replacement for the stdlib decompressor
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	entries := make([]Entry, len(zr.File))
	for i, f := range zr.File {
		entries[i] = Entry{
			Path:             f.Name,
			UncompressedSize: int64(f.UncompressedSize64),
			CRC32:            f.CRC32,
			index:            i,
		}
	}

	return &Reader{path: path, zr: zr, entries: entries}, nil
}

// Path returns the archive's local filesystem path.
func (r *Reader) Path() string { return r.path }

// Entries returns the archive members in central-directory order.
// The returned slice is shared; callers must not mutate it.
func (r *Reader) Entries() []Entry { return r.entries }

// Extract decompresses one entry's payload into memory.
func (r *Reader) Extract(entry Entry) ([]byte, error) {
	if entry.index < 0 || entry.index >= len(r.zr.File) {
		return nil, fmt.Errorf("entry %s is not part of archive %s", entry.Path, r.path)
	}
	f := r.zr.File[entry.index]
	if f.Name != entry.Path {
		return nil, fmt.Errorf("entry %s is not part of archive %s", entry.Path, r.path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", entry.Path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress entry %s: %w", entry.Path, err)
	}
	return data, nil
}

// Close releases the underlying archive file handle.
func (r *Reader) Close() error {
	return r.zr.Close()
}
