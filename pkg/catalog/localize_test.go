package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func baseCatalog() *AppCatalog {
	return &AppCatalog{
		Name:       "Fair Ground",
		Identifier: "app.fairground",
		SourceURL:  "https://fairground.example/catalog.json",
		Apps: []AppCatalogItem{
			{Name: "One", BundleIdentifier: "app.One", Version: "1.0.0", DownloadURL: "https://x/One.zip"},
			{Name: "Two", BundleIdentifier: "app.Two", Version: "2.0.0", DownloadURL: "https://x/Two.zip"},
		},
		News:          []NewsItem{{Identifier: "launch", Title: "We launched"}},
		Localizations: map[string]string{"fr": "catalog.fr.json"},
	}
}

func TestApplyLocalizationScalarOverrides(t *testing.T) {
	base := baseCatalog()
	localized := &AppCatalog{Name: "Terrain Équitable"}

	out := ApplyLocalization(base, localized)
	if out.Name != "Terrain Équitable" {
		t.Errorf("Name = %q", out.Name)
	}
	// unsupplied scalars keep the base values
	if out.Identifier != "app.fairground" || out.SourceURL != base.SourceURL {
		t.Errorf("base scalars lost: %+v", out)
	}
	// lists are untouched when the localized source declares none
	if len(out.Apps) != 2 || len(out.News) != 1 {
		t.Errorf("lists replaced without localized content: %+v", out)
	}
	// the variant never re-declares its siblings
	if out.Localizations != nil {
		t.Errorf("Localizations = %v, want nil", out.Localizations)
	}
	// the base is never mutated
	if base.Name != "Fair Ground" || base.Localizations == nil {
		t.Errorf("base catalog mutated: %+v", base)
	}
}

func TestApplyLocalizationWholesaleLists(t *testing.T) {
	base := baseCatalog()
	localized := &AppCatalog{
		News: []NewsItem{{Identifier: "lancement", Title: "Nous avons lancé"}},
	}

	out := ApplyLocalization(base, localized)
	// a non-empty localized list replaces the base list wholesale
	if len(out.News) != 1 || out.News[0].Identifier != "lancement" {
		t.Errorf("News = %+v", out.News)
	}
	// the apps list had no localized counterpart and survives intact
	if len(out.Apps) != 2 {
		t.Errorf("Apps = %+v", out.Apps)
	}
}

func TestLoadLocalizedVariants(t *testing.T) {
	dir := t.TempDir()
	frPath := filepath.Join(dir, "catalog.fr.json")
	if err := os.WriteFile(frPath, []byte(`{"name": "Terrain Équitable", "identifier": ""}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	base := baseCatalog()
	variants, err := LoadLocalizedVariants(base, map[string]string{"fr": frPath})
	if err != nil {
		t.Fatalf("LoadLocalizedVariants: %v", err)
	}
	fr, ok := variants["fr"]
	if !ok {
		t.Fatalf("fr variant missing: %v", variants)
	}
	if fr.Name != "Terrain Équitable" || fr.Identifier != "app.fairground" {
		t.Errorf("fr variant = %+v", fr)
	}

	if _, err := LoadLocalizedVariants(base, map[string]string{"de": filepath.Join(dir, "missing.json")}); err == nil {
		t.Error("expected error for missing locale source")
	}

	none, err := LoadLocalizedVariants(base, nil)
	if err != nil || none != nil {
		t.Errorf("empty sources = %v, %v", none, err)
	}
}
