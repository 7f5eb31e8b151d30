// Package main provides the CLI entry point for columnlineage.
package main

import (
	"os"

	"github.com/dataplatform-labs/columnlineage/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
