package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fairtool version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fairtool %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
