package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"briefly/internal/archive"
	"briefly/internal/config"
)

// newListCommand lists previously built digests from the archive index,
// generalized from the teacher's cmd/handlers/digest_list.go.
func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List previously built digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			idx, err := archive.Open(filepath.Join(cfg.Cache.Directory, "digests.db"))
			if err != nil {
				return fmt.Errorf("opening digest archive: %w", err)
			}
			defer idx.Close()

			entries, err := idx.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No digests have been built yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  built %s  %d sections  %d articles  %s\n",
					e.Week, e.BuiltAt.Format("2006-01-02 15:04"), e.SectionCount, e.ArticleCount, e.Path)
			}
			return nil
		},
	}
}
