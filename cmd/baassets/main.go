// baassets resolves a Blue Archive region's game version, fetches its
// resource catalog, and downloads/extracts assets from it.
package main

import (
	"os"

	"github.com/baassets/pipeline/internal/cliapp"
)

func main() {
	if err := cliapp.Execute(); err != nil {
		os.Exit(1)
	}
}
