package main

import (
	"context"
	"fmt"

	"github.com/dukex/caseflow/pkg/cmd"
	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func NewDispatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "dispatch",
		Usage:     "Dispatch one event against an in-memory engine and print the executions",
		ArgsUsage: "<event-type>",
		Flags:     append(definitionFlags(), dataFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			triggerType := models.TriggerType(command.Args().First())
			if !triggerType.Valid() {
				return fmt.Errorf("unknown event type %q", triggerType)
			}

			data, err := readData(command)
			if err != nil {
				return err
			}

			logger := log.WithService("caseflow-dispatch")

			pub, _, err := cmd.NewChannel("gochannel", logger, "")
			if err != nil {
				return err
			}

			defer func() {
				if err := pub.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close publisher", "error", err)
				}
			}()

			engine, _, err := newLocalEngine(logger, command, cmd.NewHandlers(logger, pub))
			if err != nil {
				return err
			}

			return printJSON(command, engine.Dispatch(ctx, triggerType, data))
		},
	}
}
