package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/caseflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///var/lib/caseflow":          "file",
		"./data":                            "file",
		"postgres://u:p@localhost/caseflow": "postgres",
		"postgresql://localhost/caseflow":   "postgresql",
		"redis://localhost:6379/0":          "redis",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	ctx := context.Background()

	p, err := NewPersistence(ctx, slog.Default(), "")
	require.NoError(t, err)
	assert.Nil(t, p)

	dir := filepath.Join(t.TempDir(), "store")

	p, err = NewPersistence(ctx, slog.Default(), "file://"+dir)
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	require.NoError(t, p.HealthCheck(ctx))
	assert.DirExists(t, dir)

	_, err = NewPersistence(ctx, slog.Default(), "mongodb://localhost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported persistence url")
}

func TestNewChannel(t *testing.T) {
	pub, sub, err := NewChannel("", slog.Default(), "")
	require.NoError(t, err)
	assert.NotNil(t, pub)
	assert.NotNil(t, sub)
	require.NoError(t, pub.Close())

	_, _, err = NewChannel("rabbitmq", slog.Default(), "")
	require.Error(t, err)

	_, _, err = NewChannel("kafka", slog.Default(), "")
	require.Error(t, err)
}

func TestNewHandlers(t *testing.T) {
	pub, _, err := NewChannel("gochannel", slog.Default(), "")
	require.NoError(t, err)

	h := NewHandlers(slog.Default(), pub)
	assert.NotNil(t, h.Email)
	assert.NotNil(t, h.Task)
	assert.NotNil(t, h.Case)
	assert.NotNil(t, h.Calendar)
	assert.NotNil(t, h.Notification)
	assert.NotNil(t, h.Script)
	assert.NotNil(t, h.Webhook)
	assert.Nil(t, h.Document)
}
