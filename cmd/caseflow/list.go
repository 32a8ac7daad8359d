package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/dukex/caseflow/pkg/actions"
	cli "github.com/urfave/cli/v3"
)

func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List rules and templates",
		Flags:   definitionFlags(),
		Action: func(_ context.Context, command *cli.Command) error {
			engine, defs, err := newLocalEngine(slog.Default(), command, actions.Handlers{})
			if err != nil {
				return err
			}

			out := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)

			fmt.Fprintln(out, "RULE\tTRIGGER\tPRIORITY\tENABLED\tACTIONS")

			for _, rule := range engine.Rules() {
				fmt.Fprintf(out, "%s\t%s\t%d\t%t\t%d\n", rule.ID, rule.Trigger.Type, rule.Priority, rule.Enabled, len(rule.Actions))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "TEMPLATE\tNAME\tVARIABLES")

			for _, tpl := range engine.Templates() {
				fmt.Fprintf(out, "%s\t%s\t%d\n", tpl.ID, tpl.Name, len(tpl.Variables))
			}

			if len(defs.Schedules) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "SCHEDULE\tCRON\tEVENT")

				for _, entry := range defs.Schedules {
					fmt.Fprintf(out, "%s\t%s\t%s\n", entry.Name, entry.Cron, entry.EventType)
				}
			}

			return out.Flush()
		},
	}
}
