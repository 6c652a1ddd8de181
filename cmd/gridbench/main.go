// Package main provides the gridbench command.
package main

import (
	"os"

	"github.com/leapstack-labs/gridbench/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
