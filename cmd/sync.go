package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued changes to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := buildVerseService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		pending, err := svc.UnsavedCount(cmd.Context())
		if err != nil {
			return err
		}
		if pending == 0 {
			fmt.Println("Nothing to sync.")
			return nil
		}

		result, err := svc.FlushPending(cmd.Context())
		if err != nil {
			return fmt.Errorf("sync stalled after %d change(s): %w", result.Applied, err)
		}
		fmt.Printf("Synced %d change(s).\n", result.Applied)
		if len(result.Conflicts) > 0 {
			fmt.Printf("Already on server (queued add skipped): %s\n", strings.Join(result.Conflicts, ", "))
		}
		return nil
	},
}
