package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig is the catalog source configuration file. It seeds the
// catalog's top-level metadata and declares the child-locale sources.
type SourceConfig struct {
	// Name is the catalog display name
	Name string `yaml:"name"`

	// Identifier is the catalog's stable identifier
	Identifier string `yaml:"identifier"`

	// SourceURL is where clients refresh this catalog from
	SourceURL string `yaml:"source_url"`

	// BaseRepo is the repository whose forks are the candidate apps
	BaseRepo string `yaml:"base_repo"`

	// News lists the announcements to embed in the catalog
	News []NewsItem `yaml:"news"`

	// Locales maps a locale tag to a localized catalog source file
	Locales map[string]string `yaml:"locales"`
}

// UnmarshalYAML accepts the same lenient date forms as the JSON decoder, so
// news entries in the config file can use bare dates.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// LoadSourceConfig reads and validates a catalog source configuration file.
func LoadSourceConfig(path string) (*SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog config: %w", err)
	}

	var cfg SourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("catalog config invalid: %w", err)
	}
	return &cfg, nil
}

// Validate checks the required fields.
func (c *SourceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Identifier == "" {
		return fmt.Errorf("identifier is required")
	}
	for locale, path := range c.Locales {
		if path == "" {
			return fmt.Errorf("locale %s declares an empty source path", locale)
		}
	}
	return nil
}
