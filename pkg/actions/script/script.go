// Package script runs named, in-process scripts for the run_script action kind.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/caseflow/pkg/actions"
)

// ErrScriptNotFound is returned when the configured script is not registered.
var ErrScriptNotFound = errors.New("script not found")

// Func is a script body. args is the action's "args" object.
type Func func(ctx context.Context, args map[string]any, eventData map[string]any) (any, error)

// Scripts is a registry of named scripts.
type Scripts struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	scripts map[string]Func
}

// New creates an empty registry.
func New(logger *slog.Logger) *Scripts {
	return &Scripts{
		logger:  logger.With("module", "scripts"),
		scripts: make(map[string]Func),
	}
}

// Register binds fn to name, replacing any previous binding.
func (s *Scripts) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scripts[name] = fn
}

// Names lists registered scripts in lexical order.
func (s *Scripts) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.scripts))
	for name := range s.scripts {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Handle implements actions.Handler. The script name is read from "script".
func (s *Scripts) Handle(ctx context.Context, config map[string]any, eventData map[string]any) (any, error) {
	name := actions.String(config, "script")

	s.mu.RLock()
	fn, ok := s.scripts[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}

	s.logger.DebugContext(ctx, "Running script", "script", name)

	result, err := fn(ctx, actions.Map(config, "args"), eventData)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}

	return result, nil
}
