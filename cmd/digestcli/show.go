package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"briefly/internal/archive"
	"briefly/internal/config"
)

// newShowCommand prints a stored digest's summary, generalized from the
// teacher's cmd/handlers/digest_show.go.
func newShowCommand() *cobra.Command {
	var week string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a previously built digest's summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if week == "" {
				return fmt.Errorf("--week is required (e.g. --week=2026-W05)")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			idx, err := archive.Open(filepath.Join(cfg.Cache.Directory, "digests.db"))
			if err != nil {
				return fmt.Errorf("opening digest archive: %w", err)
			}
			defer idx.Close()

			entry, err := idx.Get(week)
			if err != nil {
				return fmt.Errorf("no digest recorded for week %s: %w", week, err)
			}

			fmt.Printf("Week:      %s\n", entry.Week)
			fmt.Printf("Built at:  %s\n", entry.BuiltAt.Format("2006-01-02 15:04"))
			fmt.Printf("Sections:  %d\n", entry.SectionCount)
			fmt.Printf("Articles:  %d\n", entry.ArticleCount)
			fmt.Printf("Artifact:  %s\n", entry.Path)
			if entry.CoverPath != "" {
				fmt.Printf("Cover:     %s\n", entry.CoverPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&week, "week", "", "ISO week label, e.g. 2026-W05")
	return cmd
}
