// Package main provides the catengine CLI entrypoint.
package main

import (
	"os"

	"github.com/catalogmind/catalog-engine/cmd/catengine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
