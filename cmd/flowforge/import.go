package main

import (
	"context"
	"fmt"

	"github.com/BabaVossRS3/FlowForge/pkg/config"
	cli "github.com/urfave/cli/v3"
)

// NewImportCommand saves workflow definitions from a YAML file. Workflows with an id replace the
// stored document of that id, so importing the same file twice is harmless.
func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import workflow definitions from a YAML file",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the definition file",
				Required: true,
				Sources:  cli.EnvVars("WORKFLOWS_FILE"),
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "Owner assigned to workflows that do not name one",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			workflows, err := config.LoadWorkflows(command.String("file"))
			if err != nil {
				return err
			}

			engine, err := newEngine(ctx, command, "import")
			if err != nil {
				return err
			}

			defer func() {
				if err := engine.Close(ctx); err != nil {
					engine.logger.ErrorContext(ctx, "Failed to close engine", "error", err)
				}
			}()

			for _, wf := range workflows {
				if wf.UserID == "" {
					wf.UserID = command.String("user-id")
				}

				if err := engine.persistence.Workflows().Save(ctx, wf); err != nil {
					return fmt.Errorf("failed to save workflow %q: %w", wf.Name, err)
				}

				engine.logger.InfoContext(ctx, "Workflow imported", "workflow_id", wf.ID, "name", wf.Name, "active", wf.IsActive)
			}

			engine.logger.InfoContext(ctx, "Import finished", "count", len(workflows))

			return nil
		},
	}
}
