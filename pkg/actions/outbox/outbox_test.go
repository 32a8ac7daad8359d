package outbox_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dukex/caseflow/pkg/actions/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_PublishEmail(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	messages, err := pubSub.Subscribe(ctx, outbox.Topic(outbox.KindEmail))
	require.NoError(t, err)

	box := outbox.New(slog.Default(), pubSub)

	result, err := box.Handler(outbox.KindEmail).Handle(ctx,
		map[string]any{"to": "ana@example.com", "template": "welcome"},
		map[string]any{"case_id": "c-7"},
	)
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, "queued", out["status"])
	assert.Equal(t, "caseflow.commands.email", out["topic"])

	select {
	case msg := <-messages:
		msg.Ack()

		var cmd outbox.Command
		require.NoError(t, json.Unmarshal(msg.Payload, &cmd))
		assert.Equal(t, out["message_id"], cmd.ID)
		assert.Equal(t, outbox.KindEmail, cmd.Kind)
		assert.Equal(t, "ana@example.com", cmd.Config["to"])
		assert.Equal(t, "c-7", msg.Metadata.Get("key"))
	case <-time.After(2 * time.Second):
		t.Fatal("command was not published")
	}
}

func TestOutbox_RequiredFields(t *testing.T) {
	t.Parallel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	box := outbox.New(slog.Default(), pubSub)

	tests := []struct {
		kind    outbox.Kind
		missing string
	}{
		{outbox.KindEmail, "to"},
		{outbox.KindTask, "title"},
		{outbox.KindCaseUpdate, "case_id"},
		{outbox.KindCalendar, "title"},
		{outbox.KindNotification, "message"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			_, err := box.Publish(context.Background(), tt.kind, map[string]any{}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}
