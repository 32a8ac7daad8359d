package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/caseflow/pkg/definitions"
	cli "github.com/urfave/cli/v3"
)

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a definitions file or directory",
		ArgsUsage: "<path>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return errors.New("definitions path is required")
			}

			out := command.Root().Writer

			defs, err := definitions.Load(path)
			if err != nil {
				fmt.Fprintf(out, "❌ INVALID: %v\n", err)

				return err
			}

			fmt.Fprintln(out, "Definition Validation Results:")
			fmt.Fprintln(out, "==============================")
			fmt.Fprintf(out, "Rules: %d\nTemplates: %d\nSchedules: %d\n", len(defs.Rules), len(defs.Templates), len(defs.Schedules))

			for _, warning := range defs.Warnings() {
				fmt.Fprintf(out, "⚠️  %s\n", warning)
			}

			fmt.Fprintln(out, "✅ VALID")

			return nil
		},
	}
}
