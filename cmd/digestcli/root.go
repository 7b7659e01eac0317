package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand builds the digestcli command tree, generalized from the
// teacher's cmd/cmd + cmd/handlers split into a single flat package:
// a thin root wiring flags and calling into internal/pipeline.
func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "digestcli",
		Short: "Build and inspect weekly intelligence digests",
	}

	root.AddCommand(newBuildCommand())
	root.AddCommand(newListCommand())
	root.AddCommand(newShowCommand())

	return root
}
