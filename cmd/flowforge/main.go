package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

const defaultPort = 3001

func main() {
	cmd := &cli.Command{
		Name:                  "flowforge",
		Usage:                 "Run and schedule automation workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewServeCommand(),
			NewExecuteCommand(),
			NewImportCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
