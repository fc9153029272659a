package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiventory/invoqa/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store, err := Open(filepath.Join(t.TempDir(), "history.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func summaryAt(start time.Time, passed, failed int) types.RunSummary {
	total := passed + failed
	return types.RunSummary{
		TotalChecks:   total,
		Passed:        passed,
		Failed:        failed,
		PassRate:      float64(passed) / float64(total) * 100,
		TotalDuration: 3 * time.Second,
		StartTime:     start,
		EndTime:       start.Add(3 * time.Second),
	}
}

func TestOpenAppliesBusyTimeout(t *testing.T) {
	store := openStore(t)

	var timeout int
	require.NoError(t, store.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 10000, timeout)
}

func TestSaveAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, "run-1", summaryAt(base, 8, 0)))
	require.NoError(t, store.Save(ctx, "run-2", summaryAt(base.Add(time.Hour), 6, 2)))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "run-1", entries[1].RunID)

	assert.Equal(t, 8, entries[0].Total)
	assert.Equal(t, 2, entries[0].Failed)
	assert.Equal(t, 75.0, entries[0].PassRate)
	assert.Equal(t, 3*time.Second, entries[0].TotalDuration)
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, string(rune('a'+i)), summaryAt(base.Add(time.Duration(i)*time.Minute), 1, 0)))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "e", entries[0].RunID)
}

func TestSaveOverwritesSameRunID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, "run-1", summaryAt(base, 4, 4)))
	require.NoError(t, store.Save(ctx, "run-1", summaryAt(base, 8, 0)))

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].Passed)
	assert.Equal(t, 0, entries[0].Failed)
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := openStore(t)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
