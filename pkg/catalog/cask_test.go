package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func caskItem() *AppCatalogItem {
	return &AppCatalogItem{
		Name:             "Cloud Cuckoo",
		BundleIdentifier: "app.Cloud-Cuckoo",
		Subtitle:         "A game of clouds",
		Version:          "1.2.0",
		DownloadURL:      "https://forge.example/Cloud-Cuckoo/1.2.0/Cloud-Cuckoo.zip",
		SHA256:           "aabbccdd",
		Homepage:         "https://cuckoo.example",
	}
}

func TestRenderCask(t *testing.T) {
	rendered, err := RenderCask(caskItem())
	if err != nil {
		t.Fatalf("RenderCask: %v", err)
	}
	cask := string(rendered)

	for _, want := range []string{
		`cask "cloud-cuckoo" do`,
		`version "1.2.0"`,
		`sha256 "aabbccdd"`,
		// the literal version folds into the interpolation token
		`url "https://forge.example/Cloud-Cuckoo/#{version}/Cloud-Cuckoo.zip"`,
		`name "Cloud Cuckoo"`,
		`desc "A game of clouds"`,
		`app "Cloud Cuckoo.app"`,
		`uninstall quit: "app.Cloud-Cuckoo"`,
		`"~/Library/Containers/app.Cloud-Cuckoo"`,
	} {
		if !strings.Contains(cask, want) {
			t.Errorf("cask missing %q:\n%s", want, cask)
		}
	}
	if strings.Contains(cask, "1.2.0/Cloud-Cuckoo.zip") {
		t.Error("literal version survived in the URL")
	}
}

func TestRenderCaskRequiresVersion(t *testing.T) {
	item := caskItem()
	item.Version = ""
	if _, err := RenderCask(item); err == nil {
		t.Error("expected error for missing version")
	}
}

func TestWriteCasks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "casks")
	cat := &AppCatalog{Apps: []AppCatalogItem{*caskItem()}}

	if err := WriteCasks(cat, dir); err != nil {
		t.Fatalf("WriteCasks: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "cloud-cuckoo.rb"))
	if err != nil {
		t.Fatalf("read cask file: %v", err)
	}
	if !strings.HasPrefix(string(data), `cask "cloud-cuckoo" do`) {
		t.Errorf("unexpected cask contents:\n%s", data)
	}
}
