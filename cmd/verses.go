package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"versekeep/internal/api"
	"versekeep/internal/verses"
)

var versesCmd = &cobra.Command{
	Use:   "verses",
	Short: "Manage your verse list",
}

var versesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your verses",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := buildVerseService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := svc.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list verses: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No verses yet. Add one with: versekeep verses add")
			return nil
		}
		for _, v := range list {
			label := v.Reference
			if v.Translation != "" {
				label += " (" + v.Translation + ")"
			}
			fmt.Printf("%-12s %-32s %s\n", v.Status, label, snippet(v.Text, 48))
		}

		if pending, err := svc.UnsavedCount(cmd.Context()); err == nil && pending > 0 {
			fmt.Printf("\n%d unsaved change(s) waiting — run: versekeep sync\n", pending)
		}
		return nil
	},
}

var versesAddCmd = &cobra.Command{
	Use:   "add <reference> <text>",
	Short: "Add a verse",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := buildVerseService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		translation, _ := cmd.Flags().GetString("translation")
		verse := api.Verse{
			Reference:   args[0],
			Text:        strings.Join(args[1:], " "),
			Translation: translation,
			Status:      api.StatusNotStarted,
		}

		err = svc.Add(cmd.Context(), verse)
		switch {
		case errors.Is(err, verses.ErrQueuedOffline):
			fmt.Printf("Offline — %s queued, will sync later.\n", verse.Reference)
			return nil
		case errors.Is(err, api.ErrConflict):
			return fmt.Errorf("%s already exists", verse.Reference)
		case err != nil:
			return err
		}
		fmt.Printf("Added %s.\n", verse.Reference)
		return nil
	},
}

var versesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import verses from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := buildVerseService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := svc.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d verse(s)", result.Added)
		if result.Queued > 0 {
			fmt.Printf(", %d queued for sync", result.Queued)
		}
		if len(result.Skipped) > 0 {
			fmt.Printf(", skipped (already exist): %s", strings.Join(result.Skipped, ", "))
		}
		fmt.Println(".")
		return nil
	},
}

var versesRemoveCmd = &cobra.Command{
	Use:   "remove <reference>",
	Short: "Remove a verse",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := buildVerseService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		err = svc.Delete(cmd.Context(), args[0])
		if errors.Is(err, verses.ErrQueuedOffline) {
			fmt.Printf("Offline — %s will be deleted on next sync.\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Removed %s.\n", args[0])
		return nil
	},
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

func init() {
	versesAddCmd.Flags().String("translation", "", "Translation label (e.g. NIV, ESV)")

	versesCmd.AddCommand(versesListCmd)
	versesCmd.AddCommand(versesAddCmd)
	versesCmd.AddCommand(versesImportCmd)
	versesCmd.AddCommand(versesRemoveCmd)
}
