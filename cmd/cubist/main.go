// Package main provides the cubist CLI.
package main

import (
	"os"

	"github.com/cubestack/cubist/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
