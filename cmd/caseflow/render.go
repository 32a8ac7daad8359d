package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/templates"
	cli "github.com/urfave/cli/v3"
)

func NewRenderCommand() *cli.Command {
	flags := append(definitionFlags(), dataFlags()...)
	flags = append(flags, &cli.StringFlag{
		Name:  "name",
		Usage: "Document name (defaults to \"<template name> - <date>\")",
	}, &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the whole document as JSON",
	})

	return &cli.Command{
		Name:      "render",
		Usage:     "Render a document template",
		ArgsUsage: "<template-id>",
		Flags:     flags,
		Action: func(_ context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return errors.New("template id is required")
			}

			engine, _, err := newLocalEngine(slog.Default(), command, actions.Handlers{})
			if err != nil {
				return err
			}

			data, err := readData(command)
			if err != nil {
				return err
			}

			tpl, err := engine.Template(id)
			if err != nil {
				return err
			}

			for _, token := range templates.Undeclared(tpl) {
				slog.Warn("Template token has no declared variable and stays literal", "template_id", id, "token", token)
			}

			doc, err := engine.Render(id, data, command.String("name"))
			if err != nil {
				return err
			}

			if command.Bool("json") {
				return printJSON(command, doc)
			}

			_, err = fmt.Fprintln(command.Root().Writer, doc.Content)

			return err
		},
	}
}
