// Command gt is the entry point for the Gas Town CLI.
package main

import (
	"os"

	"github.com/gastown/gtr/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
