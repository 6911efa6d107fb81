package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped by the build
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println("workbench " + version)
}

// fatalf reports a fatal error on stderr and exits
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
