// Package main is the entry point for the gotranslator command.
package main

import (
	"os"

	"gotranslator/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
