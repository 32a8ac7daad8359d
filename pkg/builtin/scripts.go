package builtin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dukex/caseflow/pkg/actions"
	"github.com/dukex/caseflow/pkg/actions/script"
)

const (
	ScriptDaysUntil = "days_until"
	ScriptEcho      = "echo"
)

var errDateRequired = errors.New(`"date" is required`)

// RegisterScripts binds the built-in scripts. now is the clock days_until
// counts from.
func RegisterScripts(scripts *script.Scripts, now func() time.Time) {
	scripts.Register(ScriptDaysUntil, daysUntil(now))
	scripts.Register(ScriptEcho, echo)
}

// daysUntil counts whole calendar days from today to args["date"]
// (YYYY-MM-DD or RFC 3339). Past dates are negative.
func daysUntil(now func() time.Time) script.Func {
	return func(_ context.Context, args map[string]any, _ map[string]any) (any, error) {
		raw := actions.String(args, "date")
		if raw == "" {
			return nil, errDateRequired
		}

		due, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			due, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %w", raw, err)
			}
		}

		today := now().UTC().Truncate(24 * time.Hour)
		due = due.UTC().Truncate(24 * time.Hour)

		return map[string]any{
			"days_until_due": int(math.Round(due.Sub(today).Hours() / 24)),
		}, nil
	}
}

func echo(_ context.Context, args map[string]any, eventData map[string]any) (any, error) {
	return map[string]any{
		"args":  args,
		"event": eventData,
	}, nil
}
