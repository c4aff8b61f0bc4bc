package main

import (
	"context"
	"os"

	"github.com/signalspoc/signals-cli/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
