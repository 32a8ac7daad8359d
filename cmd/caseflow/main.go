// Command caseflow runs the case-management workflow engine and its tooling.
package main

import (
	"context"
	"os"

	"github.com/dukex/caseflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "caseflow",
		Usage:                 "Automate case-management workflows with trigger, condition and action rules",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewRunCommand(),
			NewValidateCommand(),
			NewDispatchCommand(),
			NewRenderCommand(),
			NewListCommand(),
		},
	}
}

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithService("caseflow").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
