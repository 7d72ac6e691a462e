package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fairground/fairtool/pkg/catalog"
	"github.com/fairground/fairtool/pkg/hub"
	"github.com/fairground/fairtool/pkg/signing"
	"github.com/fairground/fairtool/pkg/storage"
)

var catalogFlags struct {
	owner             string
	configPath        string
	fairsealCheck     bool
	artifactExtension string
	requestLimit      int
	caskFolder        string
	output            string
	sign              bool
	keysDir           string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Assemble the catalog of vetted apps from hub metadata",
	Long: `Pulls one release-and-repository record per candidate app from the hub,
applies the fairseal and entitlement policies, and writes the catalog
JSON. Localized catalog variants and per-app cask descriptors are
emitted alongside when configured.`,
	RunE: runCatalog,
}

func init() {
	f := catalogCmd.Flags()
	f.StringVar(&catalogFlags.owner, "owner", "", "hub organization whose app forks are cataloged (required)")
	f.StringVar(&catalogFlags.configPath, "config", "", "catalog source configuration file (yaml)")
	f.BoolVar(&catalogFlags.fairsealCheck, "fairseal-check", true, "include only apps with a matching posted fairseal")
	f.StringVar(&catalogFlags.artifactExtension, "artifact-extension", "zip", "release asset extension to catalog (e.g. zip, ipa)")
	f.IntVar(&catalogFlags.requestLimit, "request-limit", 0, "maximum hub API calls for this run (0 = unlimited)")
	f.StringVar(&catalogFlags.caskFolder, "cask-folder", "", "emit one cask descriptor per app into this directory")
	f.StringVar(&catalogFlags.output, "output", "", "write the catalog to this file instead of stdout")
	f.BoolVar(&catalogFlags.sign, "sign", false, "write a signature envelope next to the catalog output")
	f.StringVar(&catalogFlags.keysDir, "keys-dir", "", "directory holding the signing keypair")
	_ = catalogCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	builder := &catalog.Builder{
		Hub:    hubClient(catalogFlags.requestLimit),
		Logger: logger,
	}

	baseRepo := ""
	var cfg *catalog.SourceConfig
	if catalogFlags.configPath != "" {
		var err error
		cfg, err = catalog.LoadSourceConfig(catalogFlags.configPath)
		if err != nil {
			return err
		}
		builder.Name = cfg.Name
		builder.Identifier = cfg.Identifier
		builder.SourceURL = cfg.SourceURL
		builder.News = cfg.News
		builder.Localizations = cfg.Locales
		baseRepo = cfg.BaseRepo
	}
	if builder.Name == "" {
		builder.Name = catalogFlags.owner
	}
	if builder.Identifier == "" {
		builder.Identifier = "app." + catalogFlags.owner
	}

	cat, err := builder.Build(ctx, catalog.Options{
		Owner:             catalogFlags.owner,
		BaseRepo:          baseRepo,
		FairsealCheck:     catalogFlags.fairsealCheck,
		ArtifactExtension: catalogFlags.artifactExtension,
	})
	if err != nil {
		return err
	}
	logger.Info("catalog assembled", zap.Int("apps", len(cat.Apps)))

	encoded, err := catalog.Encode(cat)
	if err != nil {
		return err
	}

	if catalogFlags.output == "" {
		fmt.Print(string(encoded))
	} else {
		if err := storage.AtomicWriteFile(catalogFlags.output, encoded, 0644); err != nil {
			return err
		}
		logger.Info("wrote catalog", zap.String("path", catalogFlags.output))

		if err := writeLocalizedVariants(cat, cfg); err != nil {
			return err
		}
		if catalogFlags.sign {
			if err := writeCatalogSignature(encoded); err != nil {
				return err
			}
		}
	}

	if catalogFlags.caskFolder != "" {
		if err := catalog.WriteCasks(cat, catalogFlags.caskFolder); err != nil {
			return err
		}
		logger.Info("wrote cask descriptors",
			zap.String("dir", catalogFlags.caskFolder),
			zap.Int("count", len(cat.Apps)))
	}
	return nil
}

// writeLocalizedVariants merges each declared child-locale source over the
// base catalog and writes one variant per locale next to the main output.
func writeLocalizedVariants(cat *catalog.AppCatalog, cfg *catalog.SourceConfig) error {
	if cfg == nil || len(cfg.Locales) == 0 {
		return nil
	}
	variants, err := catalog.LoadLocalizedVariants(cat, cfg.Locales)
	if err != nil {
		return err
	}
	for locale, variant := range variants {
		encoded, err := catalog.Encode(variant)
		if err != nil {
			return err
		}
		path := localizedOutputPath(catalogFlags.output, locale)
		if err := storage.AtomicWriteFile(path, encoded, 0644); err != nil {
			return err
		}
		logger.Info("wrote localized catalog", zap.String("locale", locale), zap.String("path", path))
	}
	return nil
}

// localizedOutputPath inserts the locale before the output extension:
// catalog.json + fr -> catalog.fr.json.
func localizedOutputPath(output, locale string) string {
	if i := strings.LastIndexByte(output, '.'); i > 0 {
		return output[:i] + "." + locale + output[i:]
	}
	return output + "." + locale
}

// writeCatalogSignature signs the catalog document and writes the envelope
// next to it.
func writeCatalogSignature(encoded []byte) error {
	km, err := signing.NewKeyManager(catalogFlags.keysDir)
	if err != nil {
		return err
	}
	if err := km.EnsureKeysExist(); err != nil {
		return err
	}
	envelope, err := signing.Sign(km.PrivateKey(), km.PublicKey(), encoded)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode signature envelope: %w", err)
	}
	path := catalogFlags.output + ".sig"
	if err := storage.AtomicWriteFile(path, append(out, '\n'), 0644); err != nil {
		return err
	}
	logger.Info("wrote catalog signature", zap.String("path", path))
	return nil
}

// hubClient builds the forge client shared by the commands. The token comes
// from the FAIRTOOL_HUB_TOKEN environment variable via viper.
func hubClient(requestLimit int) *hub.Client {
	client := hub.NewClient(viper.GetString("hub.base_url"), viper.GetString("hub_token"), requestLimit)
	client.Logger = logger
	return client
}
