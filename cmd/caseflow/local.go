package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/builtin"
	"github.com/dukex/caseflow/pkg/definitions"
	"github.com/dukex/caseflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func definitionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "definitions",
			Aliases: []string{"d"},
			Usage:   "Rule, template and schedule definitions (file or directory)",
			Sources: cli.EnvVars("DEFINITIONS_PATH"),
		},
		&cli.BoolFlag{
			Name:    "builtin",
			Usage:   "Register the built-in rules and templates",
			Value:   true,
			Sources: cli.EnvVars("BUILTIN_RULES"),
		},
	}
}

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "data",
			Usage: "Event or template data as a JSON object",
		},
		&cli.StringFlag{
			Name:  "data-file",
			Usage: "File holding the JSON data",
		},
	}
}

// loadDefinitions returns an empty set when no path is configured.
func loadDefinitions(command *cli.Command) (*definitions.Definitions, error) {
	path := command.String("definitions")
	if path == "" {
		return &definitions.Definitions{}, nil
	}

	return definitions.Load(path)
}

// newLocalEngine builds an in-memory engine holding the built-in and file
// definitions, file definitions last.
func newLocalEngine(logger *slog.Logger, command *cli.Command, handlers actions.Handlers) (*workflow.Engine, *definitions.Definitions, error) {
	defs, err := loadDefinitions(command)
	if err != nil {
		return nil, nil, err
	}

	engine := workflow.NewEngine(logger, workflow.Options{Handlers: handlers})

	if command.Bool("builtin") {
		builtinDefs := &definitions.Definitions{Rules: builtin.Rules(), Templates: builtin.Templates()}
		builtinDefs.Apply(engine)
	}

	defs.Apply(engine)

	return engine, defs, nil
}

func readData(command *cli.Command) (map[string]any, error) {
	raw := []byte(command.String("data"))

	if path := command.String("data-file"); path != "" {
		var err error

		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
	}

	data := map[string]any{}
	if len(raw) == 0 {
		return data, nil
	}

	err := json.Unmarshal(raw, &data)
	if err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %w", err)
	}

	return data, nil
}

func printJSON(command *cli.Command, value any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
