// Package main provides the entry point for shardmap-cli.
//
// shardmap-cli runs the in-process insert benchmark and operates on a
// running shardmap-server over its HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/shardmap-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
