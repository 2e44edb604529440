package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <reference>",
	Short: "Clear local practice progress for a verse",
	Long:  "Clear the locally recorded word progress for a verse so it can be practiced from scratch.\nServer-side history is not touched.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("this clears local progress; re-run with --yes to confirm")
		}

		deps, cleanup, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := deps.store.RecordedWords().DeleteAll(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("clear progress: %w", err)
		}
		fmt.Printf("Local progress for %s cleared.\n", args[0])
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}
