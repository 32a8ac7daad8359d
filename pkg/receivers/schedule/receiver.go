// Package schedule provides a cron receiver that emits configured events.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/receivers"
	"github.com/robfig/cron/v3"
)

var ErrNoEntries = errors.New("no schedule entries configured")

// Entry emits EventType with a copy of Data each time Cron fires.
type Entry struct {
	Name      string             `json:"name"       yaml:"name"       validate:"required"`
	Cron      string             `json:"cron"       yaml:"cron"       validate:"required"`
	EventType models.TriggerType `json:"event_type" yaml:"event_type" validate:"required"`
	Data      map[string]any     `json:"data"       yaml:"data"`
	Disabled  bool               `json:"disabled"   yaml:"disabled"`
}

type Receiver struct {
	entries []Entry
	logger  *slog.Logger
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	mutex   sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	now     func() time.Time
}

func NewReceiver(logger *slog.Logger, entries []Entry) (*Receiver, error) {
	err := Validate(entries)
	if err != nil {
		return nil, err
	}

	return &Receiver{
		entries: entries,
		logger:  logger.With("module", "schedule_receiver"),
		jobs:    make(map[string]cron.EntryID),
		now:     time.Now,
	}, nil
}

// Validate checks names are present and unique and every cron expression parses.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return ErrNoEntries
	}

	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if entry.Name == "" {
			return errors.New("schedule entry name is required")
		}

		if seen[entry.Name] {
			return fmt.Errorf("duplicate schedule entry %s", entry.Name)
		}

		seen[entry.Name] = true

		if entry.EventType == "" {
			return fmt.Errorf("event type required for schedule entry %s", entry.Name)
		}

		_, err := cron.ParseStandard(entry.Cron)
		if err != nil {
			return fmt.Errorf("invalid cron expression '%s' for entry %s: %w", entry.Cron, entry.Name, err)
		}
	}

	return nil
}

func (r *Receiver) Start(ctx context.Context, callback receivers.Callback) error {
	r.logger.InfoContext(ctx, "Starting schedule receiver", "entries_count", len(r.entries))
	r.ctx, r.cancel = context.WithCancel(ctx)

	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(r.logger.Handler(), slog.LevelDebug))
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	for _, entry := range r.entries {
		if entry.Disabled {
			r.logger.InfoContext(ctx, "Schedule entry is disabled, skipping", "entry", entry.Name)

			continue
		}

		entryID, err := r.cron.AddFunc(entry.Cron, r.job(entry, callback))
		if err != nil {
			return fmt.Errorf("failed to add cron job for entry %s: %w", entry.Name, err)
		}

		r.mutex.Lock()
		r.jobs[entry.Name] = entryID
		r.mutex.Unlock()

		r.logger.InfoContext(ctx, "Added cron job", "entry", entry.Name, "cron", entry.Cron, "entry_id", entryID)
	}

	r.cron.Start()

	return nil
}

func (r *Receiver) job(entry Entry, callback receivers.Callback) func() {
	logger := r.logger.With("entry", entry.Name, "trigger_type", entry.EventType)

	return func() {
		data := make(map[string]any, len(entry.Data)+2)
		maps.Copy(data, entry.Data)
		data["schedule"] = entry.Name
		data["timestamp"] = r.now().UTC().Format(time.RFC3339)

		logger.DebugContext(r.ctx, "Schedule fired")

		err := callback(r.ctx, entry.EventType, data)
		if err != nil {
			logger.ErrorContext(r.ctx, "Error dispatching scheduled event", "error", err)
		}
	}
}

// Next reports when the named entry fires next. It is false before Start or
// for disabled and unknown entries.
func (r *Receiver) Next(name string) (time.Time, bool) {
	r.mutex.RLock()
	id, ok := r.jobs[name]
	r.mutex.RUnlock()

	if !ok || r.cron == nil {
		return time.Time{}, false
	}

	return r.cron.Entry(id).Next, true
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping schedule receiver")

	if r.cron != nil {
		<-r.cron.Stop().Done()
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.mutex.Lock()
	r.jobs = make(map[string]cron.EntryID)
	r.mutex.Unlock()

	return nil
}
