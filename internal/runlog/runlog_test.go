package runlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "runs", "harvest_runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestStartComplete(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "harvest")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, l.Complete(ctx, id, 3045, 112))

	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "harvest", e.Kind)
	assert.Equal(t, "complete", e.Status)
	assert.Equal(t, int64(3045), e.LastID)
	assert.Equal(t, int64(112), e.NewRecords)
	assert.NotNil(t, e.FinishedAt)
	assert.Empty(t, e.Error)
}

func TestFail(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	id, err := l.Start(ctx, "backfill")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, id, "dataset: replace /data/q.csv: permission denied"))

	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Contains(t, entries[0].Error, "permission denied")
}

func TestCompleteUnknownRun(t *testing.T) {
	l := openTestLog(t)
	assert.Error(t, l.Complete(context.Background(), "no-such-run", 0, 0))
	assert.Error(t, l.Fail(context.Background(), "no-such-run", "x"))
}

func TestListLimitAndOrder(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, err := l.Start(ctx, "harvest")
		require.NoError(t, err)
		require.NoError(t, l.Complete(ctx, id, 0, 0))
	}

	entries, err := l.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].StartedAt.After(all[i-1].StartedAt), "newest first")
	}
}
