package catalog

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/fairground/fairtool/pkg/storage"
)

// caskTemplate is the Homebrew-style package descriptor emitted per app.
// The download URL folds the literal version into the #{version} token so
// bumping the cask's version stanza retargets the URL.
const caskTemplate = `cask "{{.Token}}" do
  version "{{.Version}}"
  sha256 "{{.SHA256}}"

  url "{{.URL}}"
  name "{{.Name}}"
  desc "{{.Desc}}"
  homepage "{{.Homepage}}"

  app "{{.Name}}.app"

  uninstall quit: "{{.BundleID}}"

  zap trash: [
    "~/Library/Caches/{{.BundleID}}",
    "~/Library/Containers/{{.BundleID}}",
    "~/Library/Preferences/{{.BundleID}}.plist",
  ]
end
`

var caskTmpl = template.Must(template.New("cask").Parse(caskTemplate))

// caskData is the template input for one app.
type caskData struct {
	Token    string
	Version  string
	SHA256   string
	URL      string
	Name     string
	Desc     string
	Homepage string
	BundleID string
}

// RenderCask renders the cask descriptor for one catalog item.
func RenderCask(item *AppCatalogItem) ([]byte, error) {
	if item.Version == "" {
		return nil, fmt.Errorf("cask for %s requires a version", item.Name)
	}

	url := item.DownloadURL
	if item.Version != "" {
		url = strings.ReplaceAll(url, item.Version, "#{version}")
	}

	data := caskData{
		Token:    strings.ToLower(item.Hyphenated()),
		Version:  item.Version,
		SHA256:   item.SHA256,
		URL:      url,
		Name:     item.Name,
		Desc:     item.Subtitle,
		Homepage: item.Homepage,
		BundleID: item.BundleIdentifier,
	}

	var buf bytes.Buffer
	if err := caskTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render cask for %s: %w", item.Name, err)
	}
	return buf.Bytes(), nil
}

// WriteCasks emits one cask file per app into dir, named by the cask token.
func WriteCasks(cat *AppCatalog, dir string) error {
	if err := storage.EnsureDir(dir, 0755); err != nil {
		return err
	}
	for i := range cat.Apps {
		item := &cat.Apps[i]
		rendered, err := RenderCask(item)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, strings.ToLower(item.Hyphenated())+".rb")
		if err := storage.AtomicWriteFile(path, rendered, 0644); err != nil {
			return fmt.Errorf("failed to write cask %s: %w", path, err)
		}
	}
	return nil
}
