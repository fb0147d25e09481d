// twopane - dual-backend file browser and transfer tool.
package main

import (
	"os"

	"github.com/twopane/twopane/internal/cli"
)

// Version information - overridden by the Makefile via LDFLAGS for releases.
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
