// Command fairtool verifies reproducible application builds and assembles
// the published app catalog for a fair-ground distribution hub.
package main

import (
	"fmt"
	"os"
)

var version = "v0.1.0" // Set via ldflags during build

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
