// Package cli wires the auxdeck command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var outputJSON bool

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auxdeck",
		Short: "Managed acquisition of external audio tools and track-source resolution",
	}

	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newResolveCmd())

	return cmd
}
