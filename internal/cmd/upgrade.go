package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/dotcommander/airport/internal/errs"
)

const installPkg = "github.com/dotcommander/airport@latest"

func newUpgradeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade airport with go install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gobin, err := exec.LookPath("go")
			if err != nil {
				return errs.Wrap(err, "The go toolchain is not in your PATH.")
			}
			if !rt.cfg.Quiet {
				fmt.Fprintf(os.Stderr, "Current version: %s\nRunning go install %s\n", rt.build.Version, installPkg)
			}

			install := exec.CommandContext(cmd.Context(), gobin, "install", installPkg)
			install.Stdout = os.Stdout
			install.Stderr = os.Stderr
			if err := install.Run(); err != nil {
				return errs.Wrap(err, "Upgrade failed.")
			}
			if !rt.cfg.Quiet {
				fmt.Fprintln(os.Stderr, "Upgrade complete.")
			}
			return nil
		},
	}
}
