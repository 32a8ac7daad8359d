// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/actions/outbox"
	"github.com/dukex/caseflow/pkg/actions/script"
	"github.com/dukex/caseflow/pkg/actions/webhook"
	"github.com/dukex/caseflow/pkg/builtin"
)

// NewHandlers wires the outbox kinds to publisher, webhooks to an HTTP
// client and run_script to the built-in scripts. Document generation is
// left to the engine's template store.
func NewHandlers(logger *slog.Logger, publisher message.Publisher) actions.Handlers {
	scripts := script.New(logger)
	builtin.RegisterScripts(scripts, time.Now)

	return outbox.New(logger, publisher).Handlers(actions.Handlers{
		Script:  scripts,
		Webhook: webhook.New(logger, &http.Client{}),
	})
}
