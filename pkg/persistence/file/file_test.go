package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/test", NewPersistence("/tmp/test").root)
	assert.Equal(t, "/tmp/test", NewPersistence("file:///tmp/test").root)
}

func TestPersistence_Contract(t *testing.T) {
	t.Parallel()

	fp := NewPersistence(t.TempDir())

	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fp.now = func() time.Time {
		tick = tick.Add(time.Millisecond)

		return tick
	}

	persistencetest.Run(context.Background(), t, fp)
}

func TestPersistence_FileLayout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fp := NewPersistence(root)

	require.NoError(t, fp.SaveRule(context.Background(), models.WorkflowRule{ID: "weird/id", Name: "n"}))

	_, err := os.Stat(filepath.Join(root, "rules", "weird%2Fid.json"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, "rules"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	stored, err := fp.RuleByID(context.Background(), "weird/id")
	require.NoError(t, err)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestPersistence_HealthCheckCreatesRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "nested", "data")
	fp := NewPersistence(root)

	require.NoError(t, fp.HealthCheck(context.Background()))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
