package seal

import (
	"fmt"
	"strings"

	"github.com/fairground/fairtool/pkg/diff"
)

// maxReportedSpans caps how many insertion/removal ranges a mismatch error
// enumerates per side, for readability.
const maxReportedSpans = 10

// CountMismatchError reports archives that enumerate a different number of
// members. Structural: always fatal, detected before any decompression.
type CountMismatchError struct {
	TrustedCount   int
	UntrustedCount int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("archive entry count mismatch: trusted has %d entries, untrusted has %d",
		e.TrustedCount, e.UntrustedCount)
}

// RootError reports an archive without exactly one app-bundle root.
type RootError struct {
	Roots []string
}

func (e *RootError) Error() string {
	if len(e.Roots) == 0 {
		return "no app bundle root found in archive"
	}
	return fmt.Sprintf("expected exactly one app bundle root, found %d: %s",
		len(e.Roots), strings.Join(e.Roots, ", "))
}

// PathMismatchError reports archives whose members enumerate in different
// order or under different names.
type PathMismatchError struct {
	Index         int
	TrustedPath   string
	UntrustedPath string
}

func (e *PathMismatchError) Error() string {
	return fmt.Sprintf("archive path mismatch at entry %d: trusted has %q, untrusted has %q",
		e.Index, e.TrustedPath, e.UntrustedPath)
}

// ContentMismatchError reports an entry whose normalized payloads differ
// beyond tolerance. It carries the full range lists; the message enumerates
// the first maxReportedSpans per side.
type ContentMismatchError struct {
	Path         string
	TotalChanges int
	Inserted     []diff.Span
	Removed      []diff.Span
}

func (e *ContentMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "content mismatch in %s: %d byte(s) changed", e.Path, e.TotalChanges)
	if len(e.Inserted) > 0 {
		fmt.Fprintf(&b, "; inserted %s", formatSpans(e.Inserted))
	}
	if len(e.Removed) > 0 {
		fmt.Fprintf(&b, "; removed %s", formatSpans(e.Removed))
	}
	return b.String()
}

func formatSpans(spans []diff.Span) string {
	shown := spans
	truncated := 0
	if len(shown) > maxReportedSpans {
		truncated = len(shown) - maxReportedSpans
		shown = shown[:maxReportedSpans]
	}
	parts := make([]string, len(shown))
	for i, s := range shown {
		parts[i] = fmt.Sprintf("[%d..%d)", s.Offset, s.Offset+s.Length)
	}
	out := strings.Join(parts, " ")
	if truncated > 0 {
		out += fmt.Sprintf(" (+%d more)", truncated)
	}
	return out
}

// MissingExecutableError reports a comparison that finished without ever
// observing the platform's main executable entry; such a seal is invalid.
type MissingExecutableError struct {
	ExecutablePath string
}

func (e *MissingExecutableError) Error() string {
	return fmt.Sprintf("main executable %s never observed: seal would be invalid", e.ExecutablePath)
}
