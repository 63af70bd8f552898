// Package main is the entry point for the pipekeep CLI.
package main

import (
	"os"

	"github.com/mattjoyce/pipekeep/internal/cli"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := cli.Execute(version, gitCommit, buildDate); err != nil {
		os.Exit(1)
	}
}
