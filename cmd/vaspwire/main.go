package main

import (
	"os"

	"vaspwire/cmd/vaspwire/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
