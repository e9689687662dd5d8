package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var errExecutionFailed = errors.New("workflow execution failed")

// NewExecuteCommand runs one stored workflow once and prints the recorded entry.
func NewExecuteCommand() *cli.Command {
	return &cli.Command{
		Name:    "execute",
		Aliases: []string{"x"},
		Usage:   "Run a stored workflow once",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "workflow-id",
				Aliases:  []string{"id"},
				Usage:    "Workflow to run",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "trigger-data",
				Usage: "JSON object seeded into the trigger nodes; sample data is used when empty",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			var triggerData map[string]any

			if raw := command.String("trigger-data"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &triggerData); err != nil {
					return fmt.Errorf("invalid trigger data: %w", err)
				}
			}

			engine, err := newEngine(ctx, command, "execute")
			if err != nil {
				return err
			}

			defer func() {
				if err := engine.Close(ctx); err != nil {
					engine.logger.ErrorContext(ctx, "Failed to close engine", "error", err)
				}
			}()

			wf, err := engine.persistence.Workflows().GetByID(ctx, command.String("workflow-id"))
			if err != nil {
				return err
			}

			entry, err := engine.runner.Run(ctx, workflow.Run{
				Workflow:    wf,
				Source:      models.ExecutionSourceManual,
				TriggerData: triggerData,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(entry); err != nil {
				return err
			}

			if entry.Status == models.ExecutionStatusFailure {
				return errExecutionFailed
			}

			return nil
		},
	}
}
