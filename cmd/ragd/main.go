// Package main provides the entry point for the ragd CLI.
package main

import (
	"os"

	"github.com/askdocs/ragd/cmd/ragd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
