//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/persistence/persistencetest"
	"github.com/dukex/caseflow/pkg/persistence/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPersistence_Contract(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	persistence, err := redis.NewPersistence(ctx, slog.Default(), fmt.Sprintf("redis://%s/0", endpoint))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = persistence.Close(context.Background())
	})

	persistencetest.Run(ctx, t, persistence)
}
