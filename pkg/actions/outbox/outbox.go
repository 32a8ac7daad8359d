// Package outbox hands side-effecting actions to downstream services as
// command messages on a watermill publisher.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/caseflow/pkg/actions"
)

// TopicPrefix is prepended to the command kind to build the topic name.
const TopicPrefix = "caseflow.commands."

// Kind names one command stream.
type Kind string

const (
	KindEmail        Kind = "email"
	KindTask         Kind = "task"
	KindCaseUpdate   Kind = "case_update"
	KindCalendar     Kind = "calendar_event"
	KindNotification Kind = "notification"
)

var requiredFields = map[Kind][]string{
	KindEmail:        {"to"},
	KindTask:         {"title"},
	KindCaseUpdate:   {"case_id"},
	KindCalendar:     {"title"},
	KindNotification: {"message"},
}

// Topic returns the topic a command kind is published on.
func Topic(kind Kind) string {
	return TopicPrefix + string(kind)
}

// Command is the payload written to the bus.
type Command struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Config    map[string]any `json:"config"`
	EventData map[string]any `json:"event_data,omitempty"`
	IssuedAt  time.Time      `json:"issued_at"`
}

// Outbox publishes commands. One Outbox serves every command kind.
type Outbox struct {
	publisher message.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an Outbox on top of publisher.
func New(logger *slog.Logger, publisher message.Publisher) *Outbox {
	return &Outbox{
		publisher: publisher,
		logger:    logger.With("module", "outbox"),
		now:       time.Now,
	}
}

// Handler returns the actions.Handler publishing commands of the given kind.
func (o *Outbox) Handler(kind Kind) actions.Handler {
	return actions.HandlerFunc(func(ctx context.Context, config map[string]any, eventData map[string]any) (any, error) {
		return o.Publish(ctx, kind, config, eventData)
	})
}

// Handlers fills the outbox-backed fields of h, leaving the others untouched.
func (o *Outbox) Handlers(h actions.Handlers) actions.Handlers {
	h.Email = o.Handler(KindEmail)
	h.Task = o.Handler(KindTask)
	h.Case = o.Handler(KindCaseUpdate)
	h.Calendar = o.Handler(KindCalendar)
	h.Notification = o.Handler(KindNotification)

	return h
}

// Publish validates the command's required fields and writes it to the bus.
func (o *Outbox) Publish(ctx context.Context, kind Kind, config map[string]any, eventData map[string]any) (map[string]any, error) {
	if err := actions.RequireStrings(config, requiredFields[kind]...); err != nil {
		return nil, fmt.Errorf("%s command: %w", kind, err)
	}

	cmd := Command{
		ID:        watermill.NewUUID(),
		Kind:      kind,
		Config:    config,
		EventData: eventData,
		IssuedAt:  o.now().UTC(),
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s command: %w", kind, err)
	}

	msg := message.NewMessage(cmd.ID, payload)
	msg.Metadata.Set("kind", string(kind))

	if caseID, ok := eventData["case_id"]; ok && caseID != nil {
		msg.Metadata.Set("key", fmt.Sprint(caseID))
	}

	msg.SetContext(ctx)

	if err := o.publisher.Publish(Topic(kind), msg); err != nil {
		return nil, fmt.Errorf("failed to publish %s command: %w", kind, err)
	}

	o.logger.DebugContext(ctx, "Command published", "kind", kind, "message_id", cmd.ID)

	return map[string]any{
		"message_id": cmd.ID,
		"topic":      Topic(kind),
		"status":     "queued",
	}, nil
}
