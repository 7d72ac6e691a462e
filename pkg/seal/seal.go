// Package seal implements reproducible-build verification: it walks two
// independently produced application archives in lock-step, tolerates the
// known non-deterministic build outputs, normalizes code signatures away,
// and attests the result as a FairSeal.
package seal

import (
	"fmt"
	"net/url"
	"path"

	"github.com/fairground/fairtool/pkg/storage"
)

// Platform identifies the archive layout of an application bundle.
type Platform string

const (
	// PlatformMacOS is a zip containing a top-level <Name>.app bundle
	PlatformMacOS Platform = "macos"

	// PlatformIOS is an ipa containing Payload/<Name>.app
	PlatformIOS Platform = "ios"
)

// Asset identifies one downloadable artifact and its digest.
type Asset struct {
	// URL is where clients download the asset
	URL string `json:"url"`

	// Size is the asset size in bytes
	Size int64 `json:"size"`

	// SHA256 is the hex digest of the asset contents
	SHA256 string `json:"sha256"`
}

// Permission pairs a granted entitlement with its human-readable
// justification.
type Permission struct {
	// Type is the entitlement identifier
	Type string `json:"type"`

	// UsageDescription justifies the grant to the end user
	UsageDescription string `json:"usageDescription"`
}

// FairSeal is the attestation that a publicly built artifact matches a
// trusted reference build byte-for-byte, modulo tolerated non-determinism.
// Created once per successful verification run and immutable afterwards.
type FairSeal struct {
	// Assets lists every downloadable artifact and its hash
	Assets []Asset `json:"assets"`

	// Permissions is the validated entitlement grant list
	Permissions []Permission `json:"permissions"`

	// CoreSize is the uncompressed size of the main executable
	CoreSize int64 `json:"coreSize"`

	// Tint is an optional brand color for catalog presentation
	Tint string `json:"tint,omitempty"`
}

// Draft is the output of a successful archive comparison, before the
// permission list and asset hashes are attached.
type Draft struct {
	// CoreSize is the main executable's uncompressed size
	CoreSize int64

	// InfoPlist is the raw metadata file payload captured during the walk,
	// used for the entitlement cross-check
	InfoPlist []byte

	// Platform is the detected bundle layout
	Platform Platform

	// RootName is the bundle root, e.g. "App.app"
	RootName string
}

// Seal finalizes the draft into an immutable FairSeal.
func (d *Draft) Seal(assets []Asset, permissions []Permission, tint string) *FairSeal {
	return &FairSeal{
		Assets:      assets,
		Permissions: permissions,
		CoreSize:    d.CoreSize,
		Tint:        tint,
	}
}

// CollectAssets hashes every regular file in the staging folders and maps
// each to a downloadable asset next to the published artifact URL.
//
// The staged file whose name equals the published artifact's name reuses the
// freshly downloaded artifact's hash and size instead of re-hashing the local
// trusted copy, guaranteeing the sealed hash matches what a client will
// actually download.
func CollectAssets(stagingDirs []string, artifactURL, artifactSHA string, artifactSize int64) ([]Asset, error) {
	parsed, err := url.Parse(artifactURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact URL: %w", err)
	}
	artifactName := path.Base(parsed.Path)
	baseURL := *parsed
	baseURL.Path = path.Dir(parsed.Path)

	var assets []Asset
	seenArtifact := false
	for _, dir := range stagingDirs {
		files, err := storage.HashDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to hash staging folder %s: %w", dir, err)
		}
		for _, f := range files {
			asset := Asset{
				URL:    assetURL(baseURL, f.Name),
				Size:   f.Size,
				SHA256: f.SHA256,
			}
			if f.Name == artifactName {
				asset.URL = artifactURL
				asset.Size = artifactSize
				asset.SHA256 = artifactSHA
				seenArtifact = true
			}
			assets = append(assets, asset)
		}
	}

	if !seenArtifact && artifactName != "" && artifactName != "." {
		assets = append(assets, Asset{URL: artifactURL, Size: artifactSize, SHA256: artifactSHA})
	}
	return assets, nil
}

func assetURL(base url.URL, name string) string {
	base.Path = path.Join(base.Path, name)
	return base.String()
}
