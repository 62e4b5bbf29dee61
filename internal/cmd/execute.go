package cmd

import (
	"os"

	"github.com/dotcommander/airport/internal/config"
)

// Execute wires commands and runs Cobra. It exits with status 1 on error.
func Execute(build BuildInfo, cfg config.Config, cfgErr error) {
	root := NewRootCmd(build, cfg, cfgErr)
	if err := root.Execute(); err != nil {
		drainStdin()
		handleError(err)
		os.Exit(1)
	}
}
