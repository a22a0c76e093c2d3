// Package main provides the insightql command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/insightql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
