package main

import (
	"os"

	"github.com/daybook-app/daybook-backend/cmd/daybookd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
