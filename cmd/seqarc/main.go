// Command seqarc inspects and builds compressed genome archives.
package main

import (
	"os"

	"github.com/kilupskalvis/seqarc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
