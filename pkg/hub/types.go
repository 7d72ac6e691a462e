// Package hub talks to the Git-forge collaborator that hosts the vetted
// apps. The transport is treated as an opaque paged API; these are minimal
// typed result shapes extracting only the fields the catalog pipeline needs,
// not a complete model of the forge.
//
// JSON field names match the forge's REST payload documentation.
package hub

import (
	"time"

	"github.com/fairground/fairtool/pkg/seal"
	"github.com/fairground/fairtool/pkg/signing"
)

// Repo is a repository record.
type Repo struct {
	Name            string        `json:"name"`
	FullName        string        `json:"full_name"` // "owner/repo"
	Description     string        `json:"description"`
	HTMLURL         string        `json:"html_url"`
	Homepage        string        `json:"homepage"`
	Fork            bool          `json:"fork"`
	Archived        bool          `json:"archived"`
	StargazersCount int           `json:"stargazers_count"`
	OpenIssuesCount int           `json:"open_issues_count"`
	ForksCount      int           `json:"forks_count"`
	Topics          []string      `json:"topics"`
	FundingLinks    []FundingLink `json:"funding_links"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// FundingLink is one declared funding source for a repository.
type FundingLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Release is a published release record.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Body        string         `json:"body"`
	Draft       bool           `json:"draft"`
	Prerelease  bool           `json:"prerelease"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt time.Time      `json:"published_at"`
	Assets      []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable artifact attached to a release.
type ReleaseAsset struct {
	Name               string    `json:"name"`
	ContentType        string    `json:"content_type"`
	Size               int64     `json:"size"`
	DownloadCount      int64     `json:"download_count"`
	BrowserDownloadURL string    `json:"browser_download_url"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// AppRecord pairs a repository with its latest release; one per candidate
// app in a catalog run.
type AppRecord struct {
	Repo    Repo
	Release Release
}

// SignedSeal is the envelope a verifier posts to the hub: the seal document
// plus a detached signature over its canonical JSON form.
type SignedSeal struct {
	Seal      *seal.FairSeal    `json:"seal"`
	Signature *signing.Envelope `json:"signature,omitempty"`
}
