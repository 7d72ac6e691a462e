package seal

import (
	"bytes"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fairground/fairtool/pkg/archive"
	"github.com/fairground/fairtool/pkg/diff"
	"github.com/fairground/fairtool/pkg/macho"
)

// layout locates the well-known members of a detected bundle layout.
type layout struct {
	platform       Platform
	rootName       string
	executablePath string
	infoPlistPath  string
}

// Comparator verifies that two archives hold the same build.
type Comparator struct {
	// Logger reports tolerated differences and skip decisions. Optional.
	Logger *zap.Logger
}

// Compare walks the trusted and untrusted archives positionally and returns
// a seal draft when every entry matches, modulo the tolerated categories and
// the optional executable threshold.
//
// threshold is an exclusive upper bound on byte changes in the main
// executable only: totalChanges must be strictly less than it to pass. A nil
// threshold tolerates nothing.
//
// Any structural mismatch (entry count, path order, bundle root) aborts the
// whole run; there is no partial seal.
func (c *Comparator) Compare(trusted, untrusted *archive.Reader, threshold *int) (*Draft, error) {
	te := trusted.Entries()
	ue := untrusted.Entries()
	if len(te) != len(ue) {
		return nil, &CountMismatchError{TrustedCount: len(te), UntrustedCount: len(ue)}
	}

	lay, err := detectLayout(te)
	if err != nil {
		return nil, err
	}

	var (
		coreSize  int64
		coreSeen  bool
		infoPlist []byte
	)

	for i := range te {
		t, u := te[i], ue[i]
		if t.Path != u.Path {
			return nil, &PathMismatchError{Index: i, TrustedPath: t.Path, UntrustedPath: u.Path}
		}

		isExecutable := t.Path == lay.executablePath
		if isExecutable {
			coreSize = t.UncompressedSize
			coreSeen = true
		}
		if t.Path == lay.infoPlistPath {
			infoPlist, err = trusted.Extract(t)
			if err != nil {
				return nil, fmt.Errorf("failed to read bundle metadata: %w", err)
			}
		}

		// cheap path: identical checksums never decompress
		if t.CRC32 == u.CRC32 && t.UncompressedSize == u.UncompressedSize {
			continue
		}

		if toleratedPath(t.Path) {
			c.debug("tolerating known non-deterministic entry", zap.String("path", t.Path))
			continue
		}

		trustedPayload, err := trusted.Extract(t)
		if err != nil {
			return nil, fmt.Errorf("failed to extract trusted %s: %w", t.Path, err)
		}
		untrustedPayload, err := untrusted.Extract(u)
		if err != nil {
			return nil, fmt.Errorf("failed to extract untrusted %s: %w", u.Path, err)
		}

		if isExecutable || macho.IsMachO(trustedPayload) {
			trustedPayload, err = macho.Strip(trustedPayload)
			if err != nil {
				return nil, fmt.Errorf("failed to normalize trusted %s: %w", t.Path, err)
			}
			untrustedPayload, err = macho.Strip(untrustedPayload)
			if err != nil {
				return nil, fmt.Errorf("failed to normalize untrusted %s: %w", u.Path, err)
			}
		}

		if bytes.Equal(trustedPayload, untrustedPayload) {
			continue
		}

		result := diff.Compare(trustedPayload, untrustedPayload)
		total := result.TotalChanges()
		if total == 0 {
			continue
		}

		if isExecutable && threshold != nil && total < *threshold {
			c.debug("executable difference within tolerance",
				zap.String("path", t.Path),
				zap.Int("totalChanges", total),
				zap.Int("threshold", *threshold),
				zap.Int("moved", result.Moved))
			continue
		}

		return nil, &ContentMismatchError{
			Path:         t.Path,
			TotalChanges: total,
			Inserted:     result.Inserted,
			Removed:      result.Removed,
		}
	}

	if !coreSeen {
		return nil, &MissingExecutableError{ExecutablePath: lay.executablePath}
	}

	return &Draft{
		CoreSize:  coreSize,
		InfoPlist: infoPlist,
		Platform:  lay.platform,
		RootName:  lay.rootName,
	}, nil
}

func (c *Comparator) debug(msg string, fields ...zap.Field) {
	if c.Logger != nil {
		c.Logger.Debug(msg, fields...)
	}
}

// toleratedPath classifies entries whose differences are tolerated
// unconditionally: code-signature directories, compiled asset catalogs and
// compiled interface files are known non-deterministic compiler outputs.
// This is an explicit allow-list, never a fallback.
func toleratedPath(path string) bool {
	if strings.Contains(path, "_CodeSignature/") {
		return true
	}
	if strings.HasSuffix(path, ".car") || strings.HasSuffix(path, ".nib") {
		return true
	}
	if i := strings.Index(path, ".storyboardc/"); i >= 0 && i+len(".storyboardc/") < len(path) {
		return true
	}
	return false
}

// detectLayout determines the bundle layout from the trusted entry list.
// Exactly one top-level app bundle root must exist.
func detectLayout(entries []archive.Entry) (layout, error) {
	tops := make(map[string]bool)
	for _, e := range entries {
		top, _, _ := strings.Cut(e.Path, "/")
		if top != "" {
			tops[top] = true
		}
	}

	if len(tops) == 1 && tops["Payload"] {
		return detectIOSLayout(entries)
	}

	var roots []string
	for top := range tops {
		roots = append(roots, top)
	}
	if len(roots) != 1 || !strings.HasSuffix(roots[0], ".app") {
		return layout{}, &RootError{Roots: roots}
	}

	root := roots[0]
	name := strings.TrimSuffix(root, ".app")
	return layout{
		platform:       PlatformMacOS,
		rootName:       root,
		executablePath: root + "/Contents/MacOS/" + name,
		infoPlistPath:  root + "/Contents/Info.plist",
	}, nil
}

func detectIOSLayout(entries []archive.Entry) (layout, error) {
	bundles := make(map[string]bool)
	for _, e := range entries {
		rest := strings.TrimPrefix(e.Path, "Payload/")
		bundle, _, _ := strings.Cut(rest, "/")
		if strings.HasSuffix(bundle, ".app") {
			bundles[bundle] = true
		}
	}

	var roots []string
	for b := range bundles {
		roots = append(roots, b)
	}
	if len(roots) != 1 {
		return layout{}, &RootError{Roots: roots}
	}

	root := roots[0]
	name := strings.TrimSuffix(root, ".app")
	return layout{
		platform:       PlatformIOS,
		rootName:       root,
		executablePath: "Payload/" + root + "/" + name,
		infoPlistPath:  "Payload/" + root + "/Info.plist",
	}, nil
}
