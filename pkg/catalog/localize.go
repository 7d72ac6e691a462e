package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// ApplyLocalization merges a localized catalog source over a base catalog
// and returns the localized variant. The base is never mutated.
//
// The merge is deliberately asymmetric: top-level scalar fields are
// overridden individually when the localized source supplies them
// (last-write-wins per field), while the apps and news lists are replaced
// wholesale only when the localized source declares a non-empty list.
// Partial list localization is not supported.
func ApplyLocalization(base, localized *AppCatalog) *AppCatalog {
	out := *base

	if localized.Name != "" {
		out.Name = localized.Name
	}
	if localized.Identifier != "" {
		out.Identifier = localized.Identifier
	}
	if localized.SourceURL != "" {
		out.SourceURL = localized.SourceURL
	}

	if len(localized.Apps) > 0 {
		out.Apps = localized.Apps
	}
	if len(localized.News) > 0 {
		out.News = localized.News
	}
	if len(localized.FundingSources) > 0 {
		out.FundingSources = localized.FundingSources
	}

	// localized variants do not re-declare their siblings
	out.Localizations = nil
	return &out
}

// LoadLocalizedVariants reads each declared child-locale source file and
// merges it over the base catalog, returning one variant per locale.
func LoadLocalizedVariants(base *AppCatalog, sources map[string]string) (map[string]*AppCatalog, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	variants := make(map[string]*AppCatalog, len(sources))
	for locale, path := range sources {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read localized catalog source %s: %w", locale, err)
		}
		localized, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse localized catalog source %s: %w", locale, err)
		}
		variants[locale] = ApplyLocalization(base, localized)
	}
	return variants, nil
}

// Parse decodes a catalog from JSON, accepting lenient ISO-8601 dates.
func Parse(data []byte) (*AppCatalog, error) {
	var cat AppCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return &cat, nil
}

// Encode serializes a catalog as indented JSON.
func Encode(cat *AppCatalog) ([]byte, error) {
	data, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog JSON: %w", err)
	}
	return append(data, '\n'), nil
}
