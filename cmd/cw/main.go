// Package main provides the cw CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

// exitFailure is the exit code for I/O, parse and usage errors. Code 1 is
// reserved for "problems found".
const exitFailure = 2

func main() {
	app := &cli.Command{
		Name:    "cw",
		Version: version,
		Usage:   "Clausewitz script formatter and checker",
		Commands: []*cli.Command{
			fmtCommand(),
			checkCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitFailure)
	}
}
