package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"versekeep/internal/points"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show points and streaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, cleanup, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cmd.Context()
		reconciler := points.New(deps.client, deps.store.Streaks(), deps.store.Caches(), deps.cfg.RefreshMinGap, deps.log)
		if err := reconciler.LoadCached(ctx); err != nil {
			return err
		}
		if _, err := reconciler.Refresh(ctx, true); err != nil {
			fmt.Println("Offline — showing locally cached stats.")
		}

		fmt.Printf("Points:         %d\n", reconciler.Points())
		fmt.Printf("Longest streak: %d\n", reconciler.LongestStreak())

		rows := reconciler.VerseStreaks()
		if len(rows) == 0 {
			return nil
		}
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].LongestGuessStreak > rows[j].LongestGuessStreak
		})

		fmt.Printf("\n%-24s %8s %8s\n", "Verse", "Current", "Longest")
		for _, row := range rows {
			fmt.Printf("%-24s %8d %8d\n", row.VerseReference, row.CurrentGuessStreak, row.LongestGuessStreak)
		}
		return nil
	},
}
