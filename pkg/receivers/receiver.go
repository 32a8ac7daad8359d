// Package receivers turns external event sources into engine dispatches.
package receivers

import (
	"context"
	"fmt"

	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

// Callback receives one domain event read from a source.
type Callback func(ctx context.Context, triggerType models.TriggerType, data map[string]any) error

// Receiver listens to an external source until stopped.
type Receiver interface {
	Start(ctx context.Context, callback Callback) error
	Stop(ctx context.Context) error
}

// Dispatcher is the part of the engine a receiver drives directly.
type Dispatcher interface {
	Dispatch(ctx context.Context, triggerType models.TriggerType, eventData map[string]any) []*models.WorkflowExecution
}

// DispatchTo runs every received event through d in the calling goroutine.
func DispatchTo(d Dispatcher) Callback {
	return func(ctx context.Context, triggerType models.TriggerType, data map[string]any) error {
		d.Dispatch(ctx, triggerType, data)

		return nil
	}
}

// PublishTo forwards every received event as a TriggerReceived on the bus.
// key selects the data field used as the partition key; an absent field leaves it empty.
func PublishTo(publisher eventbus.EventPublisher, key string) Callback {
	return func(ctx context.Context, triggerType models.TriggerType, data map[string]any) error {
		event := events.TriggerReceived{
			BaseEvent:   events.NewBaseEvent(events.TriggerReceivedEvent, ""),
			TriggerType: triggerType,
			Data:        data,
		}
		event.ID = uuid.NewString()

		partition := ""
		if v, ok := data[key]; ok && v != nil {
			partition = fmt.Sprint(v)
		}

		err := publisher.Publish(ctx, partition, event)
		if err != nil {
			return fmt.Errorf("failed to publish trigger %s: %w", triggerType, err)
		}

		return nil
	}
}
