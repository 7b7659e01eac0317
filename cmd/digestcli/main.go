// Command digestcli builds and inspects weekly intelligence digests.
package main

import (
	"fmt"
	"os"

	"briefly/internal/logger"
)

func main() {
	logger.Init()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
