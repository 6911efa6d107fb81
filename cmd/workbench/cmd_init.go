package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workbench-ai/cli/config"
)

// runInit writes a starter config file with the defaults filled in
func runInit(cmd *cobra.Command, args []string) {
	path := cfgPath
	if path == "" {
		path = config.Path()
	}

	if _, err := os.Stat(path); err == nil && !flagForce {
		fatalf("config already exists at %s (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		fatalf("error writing config: %v", err)
	}
	fmt.Printf("wrote %s\n", path)
}
