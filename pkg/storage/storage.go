// Package storage provides filesystem utilities for safe and atomic file operations.
//
// This package implements atomic write operations using the standard temp-file + rename
// pattern to ensure data consistency and prevent corruption from partial writes or crashes.
// It also provides the streaming SHA-256 helpers used when hashing build artifacts and
// staging folders.
package storage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// AtomicWriteFile writes data to a file atomically using the temp-file + rename pattern.
// This ensures that either the complete file is written or no changes occur, preventing
// partial writes and corruption.
//
// The function creates a temporary file in the same directory as the target, writes the
// data, syncs to disk, and then atomically renames it to the target path. On any error,
// the temporary file is cleaned up and the original file (if it exists) remains unchanged.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	// Temp file must live in the same directory as the target for the rename to be atomic
	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	// Success - prevent cleanup of temp file (it's now the target file)
	tmpFile = nil
	return nil
}

// EnsureDir creates a directory and all necessary parent directories.
// If the directory already exists, it returns nil (no error).
func EnsureDir(path string, perm os.FileMode) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// FileExists checks if a file exists and is a regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// HashFile computes the SHA-256 digest of a file's contents using buffered,
// streaming reads, and returns it hex-encoded along with the file size.
func HashFile(path string) (digest string, size int64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, bufio.NewReader(file))
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// HashBytes returns the hex-encoded SHA-256 digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashedFile is one regular file found by HashDir.
type HashedFile struct {
	// Path is the absolute path of the file
	Path string

	// Name is the base name of the file
	Name string

	// SHA256 is the hex-encoded digest of the file contents
	SHA256 string

	// Size is the file size in bytes
	Size int64
}

// HashDir hashes every regular file directly contained in dir (non-recursive,
// hidden files skipped) and returns the results sorted by file name so callers
// get deterministic output across runs.
func HashDir(dir string) ([]HashedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []HashedFile
	for _, entry := range entries {
		if entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		digest, size, err := HashFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, HashedFile{Path: path, Name: entry.Name(), SHA256: digest, Size: size})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
