package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fairground/fairtool/pkg/entitlements"
	"github.com/fairground/fairtool/pkg/hub"
	"github.com/fairground/fairtool/pkg/seal"
)

// Options control one catalog build.
type Options struct {
	// Owner is the hub organization whose app forks are cataloged
	Owner string

	// BaseRepo is the repository whose forks are the candidate apps
	BaseRepo string

	// FairsealCheck includes an app only when a posted seal attests the
	// candidate artifact; sealless apps are silently excluded
	FairsealCheck bool

	// ArtifactExtension filters release assets, e.g. "zip" or "ipa"
	ArtifactExtension string
}

// Builder assembles an AppCatalog from hub metadata and posted seals.
// A builder owns its output exclusively for the duration of one build.
type Builder struct {
	Hub    *hub.Client
	Logger *zap.Logger

	// Name, Identifier and SourceURL seed the catalog's top-level metadata
	Name       string
	Identifier string
	SourceURL  string

	// News is passed through from the catalog source configuration
	News []NewsItem

	// Localizations declares the child-locale catalog sources
	Localizations map[string]string
}

// Build pulls one release-and-repository record per candidate app, applies
// the fairseal and entitlement policies, and assembles the catalog.
//
// A single app's policy failure excludes that app and the build continues;
// a hub request failure aborts the whole run.
func (b *Builder) Build(ctx context.Context, opts Options) (*AppCatalog, error) {
	if opts.Owner == "" {
		return nil, errors.New("catalog build requires an owner")
	}
	baseRepo := opts.BaseRepo
	if baseRepo == "" {
		baseRepo = "App"
	}

	records, err := b.Hub.ListForkReleases(ctx, opts.Owner, baseRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to gather app records: %w", err)
	}

	cat := &AppCatalog{
		Name:          b.Name,
		Identifier:    b.Identifier,
		SourceURL:     b.SourceURL,
		Apps:          []AppCatalogItem{},
		News:          b.News,
		Localizations: b.Localizations,
	}

	for _, record := range records {
		item, ok, err := b.buildItem(ctx, opts, record)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		cat.Apps = append(cat.Apps, *item)
		cat.FundingSources = mergeFunding(cat.FundingSources, item.FundingSources)
	}

	sort.Slice(cat.Apps, func(i, j int) bool {
		return cat.Apps[i].BundleIdentifier < cat.Apps[j].BundleIdentifier
	})
	return cat, nil
}

// buildItem maps one hub record to a catalog item. ok=false excludes the
// app without failing the build.
func (b *Builder) buildItem(ctx context.Context, opts Options, record hub.AppRecord) (*AppCatalogItem, bool, error) {
	repo := record.Repo
	release := record.Release

	asset, found := pickAsset(release.Assets, opts.ArtifactExtension)
	if !found {
		b.debug("no matching artifact in release, excluding",
			zap.String("repo", repo.FullName),
			zap.String("extension", opts.ArtifactExtension))
		return nil, false, nil
	}

	name := Dehyphenate(repo.Name)
	item := &AppCatalogItem{
		Name:               name,
		BundleIdentifier:   "app." + Hyphenate(name),
		Subtitle:           repo.Description,
		Version:            strings.TrimPrefix(release.TagName, "v"),
		VersionDate:        Date{release.PublishedAt},
		VersionDescription: release.Body,
		DownloadURL:        asset.BrowserDownloadURL,
		Size:               asset.Size,
		DownloadCount:      asset.DownloadCount,
		StargazerCount:     repo.StargazersCount,
		IssueCount:         repo.OpenIssuesCount,
		Homepage:           repo.Homepage,
		FundingSources:     fundingSources(repo.FundingLinks),
	}

	if opts.FairsealCheck {
		sealed, ok, err := b.checkSeal(ctx, repo, release.TagName, asset)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		item.SHA256 = sealed.sha256
		item.CoreSize = sealed.coreSize
		item.Tint = sealed.tint
		item.Permissions = sealed.permissions
	}

	return item, true, nil
}

// sealedFacts is what a matching posted seal contributes to a catalog item.
type sealedFacts struct {
	sha256      string
	coreSize    int64
	tint        string
	permissions []seal.Permission
}

// checkSeal resolves the posted seal for the release and matches the
// candidate artifact against the seal's attested asset list. ok=false
// excludes the app (no seal, hash mismatch, or policy failure).
func (b *Builder) checkSeal(ctx context.Context, repo hub.Repo, tag string, asset hub.ReleaseAsset) (sealedFacts, bool, error) {
	owner, name := splitFullName(repo.FullName)

	signed, err := b.Hub.GetFairSeal(ctx, owner, name, tag)
	if errors.Is(err, hub.ErrNotFound) {
		b.debug("no posted fairseal, excluding", zap.String("repo", repo.FullName), zap.String("tag", tag))
		return sealedFacts{}, false, nil
	}
	if err != nil {
		return sealedFacts{}, false, fmt.Errorf("failed to look up fairseal for %s: %w", repo.FullName, err)
	}
	if signed.Seal == nil {
		b.debug("posted fairseal is empty, excluding", zap.String("repo", repo.FullName))
		return sealedFacts{}, false, nil
	}

	var attested *seal.Asset
	for i := range signed.Seal.Assets {
		if signed.Seal.Assets[i].URL == asset.BrowserDownloadURL {
			attested = &signed.Seal.Assets[i]
			break
		}
	}
	if attested == nil || attested.SHA256 == "" {
		b.debug("fairseal does not attest the candidate artifact, excluding",
			zap.String("repo", repo.FullName),
			zap.String("artifact", asset.BrowserDownloadURL))
		return sealedFacts{}, false, nil
	}

	if err := entitlements.ValidatePermissions(signed.Seal.Permissions); err != nil {
		b.debug("sealed permissions failed policy, excluding",
			zap.String("repo", repo.FullName),
			zap.Error(err))
		return sealedFacts{}, false, nil
	}

	return sealedFacts{
		sha256:      attested.SHA256,
		coreSize:    signed.Seal.CoreSize,
		tint:        signed.Seal.Tint,
		permissions: signed.Seal.Permissions,
	}, true, nil
}

func (b *Builder) debug(msg string, fields ...zap.Field) {
	if b.Logger != nil {
		b.Logger.Debug(msg, fields...)
	}
}

// pickAsset returns the first release asset matching the configured
// artifact extension.
func pickAsset(assets []hub.ReleaseAsset, extension string) (hub.ReleaseAsset, bool) {
	suffix := "." + strings.TrimPrefix(extension, ".")
	for _, a := range assets {
		if strings.HasSuffix(a.Name, suffix) {
			return a, true
		}
	}
	return hub.ReleaseAsset{}, false
}

// fundingSources maps hub funding links into catalog funding sources.
func fundingSources(links []hub.FundingLink) []FundingSource {
	var sources []FundingSource
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		src := FundingSource{Kind: FundingSourceLink, URL: l.URL}
		if l.Platform != "" {
			src.Kind = FundingSourcePlatform
			src.Platform = l.Platform
		}
		sources = append(sources, src)
	}
	return sources
}

// mergeFunding appends sources not already present, deduplicating by URL.
func mergeFunding(existing, incoming []FundingSource) []FundingSource {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s.URL] = true
	}
	for _, s := range incoming {
		if !seen[s.URL] {
			existing = append(existing, s)
			seen[s.URL] = true
		}
	}
	return existing
}

func splitFullName(fullName string) (owner, name string) {
	if i := strings.IndexByte(fullName, '/'); i >= 0 {
		return fullName[:i], fullName[i+1:]
	}
	return fullName, fullName
}
