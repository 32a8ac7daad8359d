package receivers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/mocks"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/receivers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dispatchCall struct {
	triggerType models.TriggerType
	data        map[string]any
}

type fakeDispatcher struct {
	calls []dispatchCall
}

func (f *fakeDispatcher) Dispatch(_ context.Context, triggerType models.TriggerType, data map[string]any) []*models.WorkflowExecution {
	f.calls = append(f.calls, dispatchCall{triggerType: triggerType, data: data})

	return nil
}

func TestDispatchTo(t *testing.T) {
	d := &fakeDispatcher{}

	err := receivers.DispatchTo(d)(context.Background(), models.TriggerCaseCreated, map[string]any{"case_id": "c-1"})
	require.NoError(t, err)

	require.Len(t, d.calls, 1)
	assert.Equal(t, models.TriggerCaseCreated, d.calls[0].triggerType)
	assert.Equal(t, "c-1", d.calls[0].data["case_id"])
}

func TestPublishTo(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "42", mock.MatchedBy(func(event events.TriggerReceived) bool {
		return event.TriggerType == models.TriggerPaymentReceived &&
			event.Type == events.TriggerReceivedEvent &&
			event.ID != ""
	})).Return(nil).Once()
	bus.On("Publish", mock.Anything, "", mock.Anything).Return(nil).Once()

	callback := receivers.PublishTo(bus, "case_id")

	require.NoError(t, callback(context.Background(), models.TriggerPaymentReceived, map[string]any{"case_id": 42}))
	require.NoError(t, callback(context.Background(), models.TriggerCustom, map[string]any{}))

	bus.AssertExpectations(t)
}

func TestPublishTo_Error(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := receivers.PublishTo(bus, "case_id")(context.Background(), models.TriggerCustom, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
