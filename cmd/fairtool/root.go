package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fairground/fairtool/internal/logging"
)

var logger *zap.Logger

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fairtool",
	Short: "fairtool - reproducible-build verification and catalog assembly",
	Long: `fairtool is the verification side of a fair-ground app distribution hub.

It supports:
  - Proving two independently built app archives are equivalent (fairseal)
  - Validating sandbox entitlements against usage descriptions
  - Assembling the signed catalog of vetted apps from hub metadata
  - Emitting Homebrew-style cask descriptors per app`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if viper.GetBool("verbose") {
			level = "debug"
		}
		var err error
		logger, err = logging.NewLogger(level, viper.GetString("log.format"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && logger != nil {
		logger.Error("command failed", zap.Error(err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug output")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetEnvPrefix("FAIRTOOL")
	viper.AutomaticEnv()
}
