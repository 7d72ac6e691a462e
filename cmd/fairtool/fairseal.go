package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fairground/fairtool/pkg/archive"
	"github.com/fairground/fairtool/pkg/entitlements"
	"github.com/fairground/fairtool/pkg/fetch"
	"github.com/fairground/fairtool/pkg/hub"
	"github.com/fairground/fairtool/pkg/plistutil"
	"github.com/fairground/fairtool/pkg/seal"
	"github.com/fairground/fairtool/pkg/signing"
	"github.com/fairground/fairtool/pkg/storage"
)

var fairsealFlags struct {
	trustedArtifact   string
	untrustedArtifact string
	artifactURL       string
	entitlementsPath  string
	fairsealMatch     int
	retryDuration     time.Duration
	retryWait         time.Duration
	artifactStaging   []string
	tint              string
	catalogBrowser    bool
	output            string
	post              bool
	hubOwner          string
	hubRepo           string
	hubTag            string
	keysDir           string
}

var fairsealCmd = &cobra.Command{
	Use:   "fairseal",
	Short: "Verify a reproducible build and emit its signed fairseal",
	Long: `Compares a trusted reference build against an independently produced
(untrusted) build of the same app. The builds must be byte-for-byte
equivalent modulo code signing and known non-deterministic compiler
outputs. On success a signed fairseal attestation is emitted and
optionally posted to the hub.`,
	RunE: runFairseal,
}

func init() {
	f := fairsealCmd.Flags()
	f.StringVar(&fairsealFlags.trustedArtifact, "trusted-artifact", "", "path to the trusted reference archive (required)")
	f.StringVar(&fairsealFlags.untrustedArtifact, "untrusted-artifact", "", "path to the untrusted archive (alternative to --artifact-url)")
	f.StringVar(&fairsealFlags.artifactURL, "artifact-url", "", "URL of the published untrusted artifact")
	f.StringVar(&fairsealFlags.entitlementsPath, "entitlements", "", "path to the app's entitlements property list")
	f.IntVar(&fairsealFlags.fairsealMatch, "fairseal-match", 0, "tolerated byte changes in the main executable (exclusive bound, 0 = none)")
	f.DurationVar(&fairsealFlags.retryDuration, "retry-duration", 0, "how long to keep retrying the artifact download")
	f.DurationVar(&fairsealFlags.retryWait, "retry-wait", 30*time.Second, "wait between download attempts")
	f.StringArrayVar(&fairsealFlags.artifactStaging, "artifact-staging", nil, "staging folder whose files become sealed assets (repeatable)")
	f.StringVar(&fairsealFlags.tint, "tint", "", "brand color recorded in the seal")
	f.BoolVar(&fairsealFlags.catalogBrowser, "catalog-browser", false, "app is the catalog's own browser (sandbox exemption)")
	f.StringVar(&fairsealFlags.output, "output", "", "write the signed seal to this file instead of stdout")
	f.BoolVar(&fairsealFlags.post, "post", false, "post the signed seal to the hub")
	f.StringVar(&fairsealFlags.hubOwner, "hub-owner", "", "hub organization for --post")
	f.StringVar(&fairsealFlags.hubRepo, "hub-repo", "", "hub repository for --post")
	f.StringVar(&fairsealFlags.hubTag, "hub-tag", "", "release tag the seal attests for --post")
	f.StringVar(&fairsealFlags.keysDir, "keys-dir", "", "directory holding the signing keypair")
	_ = fairsealCmd.MarkFlagRequired("trusted-artifact")
	rootCmd.AddCommand(fairsealCmd)
}

func runFairseal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	untrustedPath := fairsealFlags.untrustedArtifact
	var fetched *fetch.Result
	if untrustedPath == "" {
		if fairsealFlags.artifactURL == "" {
			return fmt.Errorf("either --untrusted-artifact or --artifact-url is required")
		}
		fetcher := &fetch.Fetcher{Logger: logger}
		var err error
		fetched, err = fetcher.Fetch(ctx, fairsealFlags.artifactURL, fairsealFlags.retryDuration, fairsealFlags.retryWait)
		if err != nil {
			return err
		}
		defer os.Remove(fetched.LocalPath)
		untrustedPath = fetched.LocalPath
		logger.Info("fetched untrusted artifact",
			zap.String("url", fairsealFlags.artifactURL),
			zap.String("sha256", fetched.SHA256),
			zap.Int64("size", fetched.Size))
	}

	trusted, err := archive.Open(fairsealFlags.trustedArtifact)
	if err != nil {
		return err
	}
	defer trusted.Close()
	untrusted, err := archive.Open(untrustedPath)
	if err != nil {
		return err
	}
	defer untrusted.Close()

	var threshold *int
	if fairsealFlags.fairsealMatch > 0 {
		threshold = &fairsealFlags.fairsealMatch
	}

	comparator := &seal.Comparator{Logger: logger}
	draft, err := comparator.Compare(trusted, untrusted, threshold)
	if err != nil {
		return err
	}
	logger.Info("archives verified equivalent",
		zap.String("root", draft.RootName),
		zap.String("platform", string(draft.Platform)),
		zap.Int64("coreSize", draft.CoreSize))

	permissions, err := validatePermissions(draft)
	if err != nil {
		return err
	}

	var assets []seal.Asset
	if len(fairsealFlags.artifactStaging) > 0 || fairsealFlags.artifactURL != "" {
		sha, size := "", int64(0)
		if fetched != nil {
			sha, size = fetched.SHA256, fetched.Size
		}
		assets, err = seal.CollectAssets(fairsealFlags.artifactStaging, fairsealFlags.artifactURL, sha, size)
		if err != nil {
			return err
		}
	}

	sealed := draft.Seal(assets, permissions, fairsealFlags.tint)
	signed, err := signSeal(sealed)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode seal: %w", err)
	}
	out = append(out, '\n')

	if fairsealFlags.output != "" {
		if err := storage.AtomicWriteFile(fairsealFlags.output, out, 0644); err != nil {
			return err
		}
		logger.Info("wrote signed fairseal", zap.String("path", fairsealFlags.output))
	} else {
		fmt.Print(string(out))
	}

	if fairsealFlags.post {
		if fairsealFlags.hubOwner == "" || fairsealFlags.hubRepo == "" || fairsealFlags.hubTag == "" {
			return fmt.Errorf("--post requires --hub-owner, --hub-repo and --hub-tag")
		}
		client := hubClient(0)
		if err := client.PostFairSeal(ctx, fairsealFlags.hubOwner, fairsealFlags.hubRepo, fairsealFlags.hubTag, signed); err != nil {
			return fmt.Errorf("failed to post fairseal: %w", err)
		}
		logger.Info("posted fairseal to hub",
			zap.String("repo", fairsealFlags.hubOwner+"/"+fairsealFlags.hubRepo),
			zap.String("tag", fairsealFlags.hubTag))
	}
	return nil
}

// validatePermissions cross-checks the declared entitlements against the
// usage descriptions captured from the bundle metadata during comparison.
func validatePermissions(draft *seal.Draft) ([]seal.Permission, error) {
	if fairsealFlags.entitlementsPath == "" {
		logger.Warn("no entitlements file supplied, sealing without permissions")
		return nil, nil
	}

	entData, err := os.ReadFile(fairsealFlags.entitlementsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read entitlements: %w", err)
	}
	ent, err := plistutil.Parse(entData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entitlements: %w", err)
	}

	usage := plistutil.Dict{}
	if len(draft.InfoPlist) > 0 {
		info, err := plistutil.Parse(draft.InfoPlist)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bundle metadata: %w", err)
		}
		usage = entitlements.UsageDescriptions(info)
	}

	return entitlements.Validate(ent, usage, entitlements.Options{
		CatalogBrowserApp: fairsealFlags.catalogBrowser,
	})
}

// signSeal wraps the seal in a signature envelope using the operator key,
// generating one on first use.
func signSeal(sealed *seal.FairSeal) (*hub.SignedSeal, error) {
	km, err := signing.NewKeyManager(fairsealFlags.keysDir)
	if err != nil {
		return nil, err
	}
	if err := km.EnsureKeysExist(); err != nil {
		return nil, err
	}

	doc, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode seal for signing: %w", err)
	}
	envelope, err := signing.Sign(km.PrivateKey(), km.PublicKey(), doc)
	if err != nil {
		return nil, err
	}
	return &hub.SignedSeal{Seal: sealed, Signature: envelope}, nil
}
