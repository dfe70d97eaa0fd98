package main

import (
	"os"

	"github.com/dmaynor/property-mangement-pane/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
