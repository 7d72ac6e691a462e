// Package catalog assembles the published manifest of vetted applications:
// per-app records merged from hub metadata and FairSeal attestations,
// localized catalog variants, and the Homebrew-style cask descriptors.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairground/fairtool/pkg/seal"
)

// Date is a lenient ISO-8601 timestamp: it decodes both full-date
// ("2006-01-02") and full-datetime (RFC 3339) strings, and always encodes
// as RFC 3339.
type Date struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 datetimes and bare dates.
func (d *Date) UnmarshalJSON(data []byte) error {
	return d.parse(strings.Trim(string(data), `"`))
}

func (d *Date) parse(s string) error {
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON encodes as RFC 3339, or null for the zero value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// FundingSourceKind tags the two funding-source variants.
type FundingSourceKind string

const (
	// FundingSourceLink is a bare donation URL
	FundingSourceLink FundingSourceKind = "link"

	// FundingSourcePlatform is a platform-qualified source (e.g. a sponsor
	// program account)
	FundingSourcePlatform FundingSourceKind = "platform"
)

// FundingSource is a two-variant tagged union: either a bare link or a
// platform-qualified source. Exactly one interpretation applies, selected
// by Kind.
type FundingSource struct {
	Kind FundingSourceKind `json:"kind"`

	// URL is set for both variants and is the deduplication key
	URL string `json:"url"`

	// Platform is set only for the platform variant
	Platform string `json:"platform,omitempty"`
}

// AppCatalogItem is one app's record in the catalog. Items are built fresh
// on every catalog run, never incrementally mutated.
type AppCatalogItem struct {
	Name               string            `json:"name"`
	BundleIdentifier   string            `json:"bundleIdentifier"`
	Subtitle           string            `json:"subtitle,omitempty"`
	Version            string            `json:"version"`
	VersionDate        Date              `json:"versionDate,omitempty"`
	VersionDescription string            `json:"versionDescription,omitempty"`
	DownloadURL        string            `json:"downloadURL"`
	SHA256             string            `json:"sha256,omitempty"`
	Size               int64             `json:"size"`
	CoreSize           int64             `json:"coreSize,omitempty"`
	Tint               string            `json:"tint,omitempty"`
	Permissions        []seal.Permission `json:"permissions,omitempty"`
	FundingSources     []FundingSource   `json:"fundingSources,omitempty"`
	DownloadCount      int64             `json:"downloadCount,omitempty"`
	StargazerCount     int               `json:"stargazerCount,omitempty"`
	IssueCount         int               `json:"issueCount,omitempty"`
	Homepage           string            `json:"homepage,omitempty"`
}

// Hyphenated is the app name with spaces folded to hyphens: the repository
// naming transform. Derived on demand, never stored redundantly.
func (i *AppCatalogItem) Hyphenated() string {
	return Hyphenate(i.Name)
}

// RepositoryURL is the app's hub repository page.
func (i *AppCatalogItem) RepositoryURL(owner string) string {
	return "https://github.com/" + owner + "/" + i.Hyphenated()
}

// IssuesURL is the app's issue tracker page.
func (i *AppCatalogItem) IssuesURL(owner string) string {
	return i.RepositoryURL(owner) + "/issues"
}

// DiscussionsURL is the app's discussion board page.
func (i *AppCatalogItem) DiscussionsURL(owner string) string {
	return i.RepositoryURL(owner) + "/discussions"
}

// Hyphenate folds runs of whitespace into single hyphens.
func Hyphenate(name string) string {
	return strings.Join(strings.Fields(name), "-")
}

// Dehyphenate is the inverse transform, turning a repository name back into
// a display name.
func Dehyphenate(repoName string) string {
	return strings.ReplaceAll(repoName, "-", " ")
}

// NewsItem is one announcement in the catalog.
type NewsItem struct {
	Identifier string `json:"identifier"`
	Date       Date   `json:"date"`
	Title      string `json:"title"`
	Caption    string `json:"caption,omitempty"`
	AppID      string `json:"appID,omitempty"`
	URL        string `json:"url,omitempty"`
}

// AppCatalog is the published, versioned manifest of installable
// applications. It is owned exclusively by the builder for the duration of
// one build and written out atomically as JSON.
type AppCatalog struct {
	Name           string            `json:"name"`
	Identifier     string            `json:"identifier"`
	SourceURL      string            `json:"sourceURL,omitempty"`
	Apps           []AppCatalogItem  `json:"apps"`
	News           []NewsItem        `json:"news,omitempty"`
	FundingSources []FundingSource   `json:"fundingSources,omitempty"`
	Localizations  map[string]string `json:"localizations,omitempty"`
}
