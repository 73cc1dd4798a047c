package main

import (
	"context"
	"log"
	"os"

	"github.com/c2tools/sanctions/cmd/sanctions/commands"
)

const (
	// LogDir specifies where CLI log files are stored.
	LogDir = "logs/sanctions_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	deps := commands.NewCLIDependencies(os.Stdout)
	defer deps.Cleanup()

	return commands.Root(deps, LogDir).Run(context.Background(), os.Args)
}
