package seal

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fairground/fairtool/pkg/archive"
)

type member struct {
	path string
	data []byte
}

var infoPlistXML = []byte(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleName</key>
	<string>App</string>
</dict>
</plist>
`)

// writeArchive materializes the members as a zip in a temp dir and opens it.
func writeArchive(t *testing.T, name string, members []member) *archive.Reader {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.path)
		if err != nil {
			t.Fatalf("create member %s: %v", m.path, err)
		}
		if _, err := w.Write(m.data); err != nil {
			t.Fatalf("write member %s: %v", m.path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	r, err := archive.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func macAppMembers(executable, signature []byte) []member {
	return []member{
		{"App.app/Contents/Info.plist", infoPlistXML},
		{"App.app/Contents/MacOS/App", executable},
		{"App.app/Contents/Resources/data.txt", []byte("shared resource\n")},
		{"App.app/Contents/_CodeSignature/CodeResources", signature},
	}
}

func TestCompareIdenticalModuloSignature(t *testing.T) {
	executable := []byte("main executable payload, identical on both sides")
	trusted := writeArchive(t, "trusted.zip", macAppMembers(executable, []byte("signature-by-developer")))
	untrusted := writeArchive(t, "untrusted.zip", macAppMembers(executable, []byte("signature-by-ci")))

	c := &Comparator{}
	draft, err := c.Compare(trusted, untrusted, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if draft.Platform != PlatformMacOS {
		t.Errorf("Platform = %q, want %q", draft.Platform, PlatformMacOS)
	}
	if draft.RootName != "App.app" {
		t.Errorf("RootName = %q, want App.app", draft.RootName)
	}
	if draft.CoreSize != int64(len(executable)) {
		t.Errorf("CoreSize = %d, want %d", draft.CoreSize, len(executable))
	}
	if len(draft.InfoPlist) == 0 {
		t.Error("bundle metadata was not captured")
	}
}

func TestCompareCountMismatch(t *testing.T) {
	executable := []byte("payload")
	members := macAppMembers(executable, []byte("sig"))
	trusted := writeArchive(t, "trusted.zip", members)
	untrusted := writeArchive(t, "untrusted.zip", append(members, member{"App.app/Contents/Resources/extra.txt", []byte("x")}))

	c := &Comparator{}
	_, err := c.Compare(trusted, untrusted, nil)
	var cm *CountMismatchError
	if !errors.As(err, &cm) {
		t.Fatalf("expected CountMismatchError, got %v", err)
	}
	if cm.TrustedCount != 4 || cm.UntrustedCount != 5 {
		t.Errorf("counts = %d/%d, want 4/5", cm.TrustedCount, cm.UntrustedCount)
	}
}

func TestComparePathMismatch(t *testing.T) {
	executable := []byte("payload")
	trusted := writeArchive(t, "trusted.zip", macAppMembers(executable, []byte("sig")))

	renamed := macAppMembers(executable, []byte("sig"))
	renamed[2].path = "App.app/Contents/Resources/other.txt"
	untrusted := writeArchive(t, "untrusted.zip", renamed)

	c := &Comparator{}
	_, err := c.Compare(trusted, untrusted, nil)
	var pm *PathMismatchError
	if !errors.As(err, &pm) {
		t.Fatalf("expected PathMismatchError, got %v", err)
	}
	if pm.Index != 2 {
		t.Errorf("Index = %d, want 2", pm.Index)
	}
	if pm.TrustedPath != "App.app/Contents/Resources/data.txt" {
		t.Errorf("TrustedPath = %q", pm.TrustedPath)
	}
}

func TestCompareToleratedCategories(t *testing.T) {
	executable := []byte("payload")
	build := func(tag string) []member {
		return []member{
			{"App.app/Contents/Info.plist", infoPlistXML},
			{"App.app/Contents/MacOS/App", executable},
			{"App.app/Contents/Resources/Assets.car", []byte("catalog-" + tag)},
			{"App.app/Contents/Resources/Main.nib", []byte("interface-" + tag)},
			{"App.app/Contents/Resources/Main.storyboardc/runtime.bin", []byte("compiled-" + tag)},
			{"App.app/Contents/_CodeSignature/CodeResources", []byte("sig-" + tag)},
		}
	}
	trusted := writeArchive(t, "trusted.zip", build("trusted"))
	untrusted := writeArchive(t, "untrusted.zip", build("untrusted"))

	c := &Comparator{}
	if _, err := c.Compare(trusted, untrusted, nil); err != nil {
		t.Fatalf("tolerated categories must not fail the comparison: %v", err)
	}
}

func TestCompareExecutableThreshold(t *testing.T) {
	base := []byte("deterministic-executable-bytes-0123456789")
	patched := append(append(append([]byte{}, base[:20]...), 'X', 'Y', 'Z'), base[20:]...)

	trusted := writeArchive(t, "trusted.zip", macAppMembers(base, []byte("sig")))
	untrusted := writeArchive(t, "untrusted.zip", macAppMembers(patched, []byte("sig")))

	c := &Comparator{}

	// exactly at the bound: exclusive, must fail
	threshold := 3
	_, err := c.Compare(trusted, untrusted, &threshold)
	var mismatch *ContentMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ContentMismatchError at threshold 3, got %v", err)
	}
	if mismatch.TotalChanges != 3 {
		t.Errorf("TotalChanges = %d, want 3", mismatch.TotalChanges)
	}
	if mismatch.Path != "App.app/Contents/MacOS/App" {
		t.Errorf("Path = %q, want main executable", mismatch.Path)
	}

	// one above the change count: strictly less, must pass
	threshold = 4
	draft, err := c.Compare(trusted, untrusted, &threshold)
	if err != nil {
		t.Fatalf("Compare at threshold 4: %v", err)
	}
	if draft.CoreSize != int64(len(base)) {
		t.Errorf("CoreSize = %d, want trusted size %d", draft.CoreSize, len(base))
	}

	// no threshold tolerates nothing
	if _, err := c.Compare(trusted, untrusted, nil); err == nil {
		t.Error("expected failure without a threshold")
	}
}

func TestCompareThresholdDoesNotCoverOtherEntries(t *testing.T) {
	executable := []byte("payload")
	trusted := writeArchive(t, "trusted.zip", macAppMembers(executable, []byte("sig")))

	altered := macAppMembers(executable, []byte("sig"))
	altered[2].data = []byte("shared resourcX\n")
	untrusted := writeArchive(t, "untrusted.zip", altered)

	c := &Comparator{}
	threshold := 1000
	_, err := c.Compare(trusted, untrusted, &threshold)
	var mismatch *ContentMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ContentMismatchError, got %v", err)
	}
	if mismatch.Path != "App.app/Contents/Resources/data.txt" {
		t.Errorf("Path = %q, want the resource entry", mismatch.Path)
	}
}

func TestCompareRejectsMultipleRoots(t *testing.T) {
	members := []member{
		{"App.app/Contents/MacOS/App", []byte("a")},
		{"Other.app/Contents/MacOS/Other", []byte("b")},
	}
	trusted := writeArchive(t, "trusted.zip", members)
	untrusted := writeArchive(t, "untrusted.zip", members)

	c := &Comparator{}
	_, err := c.Compare(trusted, untrusted, nil)
	var re *RootError
	if !errors.As(err, &re) {
		t.Fatalf("expected RootError, got %v", err)
	}
	if len(re.Roots) != 2 {
		t.Errorf("Roots = %v, want two entries", re.Roots)
	}
}

func TestCompareIOSLayout(t *testing.T) {
	executable := []byte("ios executable")
	members := []member{
		{"Payload/Tool.app/Info.plist", infoPlistXML},
		{"Payload/Tool.app/Tool", executable},
		{"Payload/Tool.app/embedded.mobileprovision", []byte("profile")},
	}
	trusted := writeArchive(t, "trusted.ipa", members)
	untrusted := writeArchive(t, "untrusted.ipa", members)

	c := &Comparator{}
	draft, err := c.Compare(trusted, untrusted, nil)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if draft.Platform != PlatformIOS {
		t.Errorf("Platform = %q, want %q", draft.Platform, PlatformIOS)
	}
	if draft.RootName != "Tool.app" {
		t.Errorf("RootName = %q, want Tool.app", draft.RootName)
	}
	if draft.CoreSize != int64(len(executable)) {
		t.Errorf("CoreSize = %d, want %d", draft.CoreSize, len(executable))
	}
}

func TestCompareMissingExecutable(t *testing.T) {
	members := []member{
		{"App.app/Contents/Info.plist", infoPlistXML},
		{"App.app/Contents/Resources/data.txt", []byte("resource")},
	}
	trusted := writeArchive(t, "trusted.zip", members)
	untrusted := writeArchive(t, "untrusted.zip", members)

	c := &Comparator{}
	_, err := c.Compare(trusted, untrusted, nil)
	var me *MissingExecutableError
	if !errors.As(err, &me) {
		t.Fatalf("expected MissingExecutableError, got %v", err)
	}
	if me.ExecutablePath != "App.app/Contents/MacOS/App" {
		t.Errorf("ExecutablePath = %q", me.ExecutablePath)
	}
}
