// Package main provides the tinyquery command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/tinyquery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
