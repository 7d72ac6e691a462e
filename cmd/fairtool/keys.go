package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairground/fairtool/pkg/signing"
)

var keysDir string

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the operator signing keypair",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the signing keypair if it does not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := signing.NewKeyManager(keysDir)
		if err != nil {
			return err
		}
		if err := km.EnsureKeysExist(); err != nil {
			return err
		}
		fmt.Printf("Keys directory: %s\n", km.KeysDir())
		fmt.Printf("Fingerprint:    %s\n", km.PublicKey().Fingerprint())
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public key and its fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := signing.NewKeyManager(keysDir)
		if err != nil {
			return err
		}
		if err := km.EnsureKeysExist(); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", km.PublicKey().Hex())
		fmt.Printf("Fingerprint: %s\n", km.PublicKey().Fingerprint())
		return nil
	},
}

func init() {
	keysCmd.PersistentFlags().StringVar(&keysDir, "keys-dir", "", "directory holding the signing keypair")
	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}
