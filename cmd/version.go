package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"versekeep/internal/compat"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("versekeep", version)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}

		deps, cleanup, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := compat.Check(cmd.Context(), deps.client, version); err != nil {
			if errors.Is(err, compat.ErrClientTooOld) {
				return err
			}
			return fmt.Errorf("check server compatibility: %w", err)
		}
		fmt.Println("Compatible with the server.")
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Also check compatibility against the server")
}
