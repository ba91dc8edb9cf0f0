package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunID = "run-0001"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func appendEvent(t *testing.T, store Store, runID, eventType string, data any) {
	t.Helper()
	e, err := NewEvent(runID, eventType, data)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), e.RunID(), e.Type(), e.Payload(), map[string]string{"source": "test"}))
}

func TestSQLiteStore_AppendAndRetrieve(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	appendEvent(t, store, testRunID, TypeDaemonStarted, DaemonStartedData{Name: "hub", Version: "1.0"})
	appendEvent(t, store, "other-run", TypeDaemonStarted, DaemonStartedData{Name: "hub"})
	appendEvent(t, store, testRunID, TypeShutdownCompleted, ShutdownCompletedData{Reason: "SIGTERM"})

	events, err := store.GetByRunID(ctx, testRunID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeDaemonStarted, events[0].Type())
	assert.Equal(t, TypeShutdownCompleted, events[1].Type())
	assert.Equal(t, "test", events[0].Metadata()["source"])
	assert.Less(t, events[0].ID(), events[1].ID())

	var started DaemonStartedData
	require.NoError(t, Decode(events[0], &started))
	assert.Equal(t, "hub", started.Name)

	latest, err := store.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, testRunID, latest)
}

func TestSQLiteStore_GetRange(t *testing.T) {
	store := newMemoryStore(t)
	appendEvent(t, store, testRunID, TypePhaseCompleted, PhaseCompletedData{Phase: "start-drivers"})

	events, err := store.GetRange(t.Context(), time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = store.GetRange(t.Context(), time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSQLiteStore_EmptyLatestRun(t *testing.T) {
	latest, err := newMemoryStore(t).LatestRunID(t.Context())
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestSQLiteStore_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	appendEvent(t, store, testRunID, TypeDaemonStarted, DaemonStartedData{Name: "hub"})
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), testRunID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSummarize(t *testing.T) {
	store := newMemoryStore(t)

	appendEvent(t, store, testRunID, TypeDaemonStarted, DaemonStartedData{Name: "hub", Version: "2.1"})
	appendEvent(t, store, testRunID, TypeDriverRegistered, DriverRegisteredData{Name: "a", Version: "1", Outcome: "inserted"})
	appendEvent(t, store, testRunID, TypeDriverRegistered, DriverRegisteredData{Name: "b", Version: "1", Outcome: "inserted"})
	appendEvent(t, store, testRunID, TypeDriverRegistered, DriverRegisteredData{Name: "c", Version: "1", Outcome: "discarded"})
	appendEvent(t, store, testRunID, TypeDriverLifecycle, DriverLifecycleData{Name: "a", Op: "start"})
	appendEvent(t, store, testRunID, TypeDriverLifecycle, DriverLifecycleData{Name: "b", Op: "start", Error: "boom"})
	appendEvent(t, store, testRunID, TypePhaseCompleted, PhaseCompletedData{Phase: "start-drivers", Result: "success"})
	appendEvent(t, store, testRunID, TypeWorkspaceLoaded, WorkspaceLoadedData{Path: "/w/1"})
	appendEvent(t, store, testRunID, TypeWorkspaceLoaded, WorkspaceLoadedData{Path: "/w/2", Error: "refused"})
	appendEvent(t, store, testRunID, TypeDriverLifecycle, DriverLifecycleData{Name: "a", Op: "stop"})
	appendEvent(t, store, testRunID, TypeShutdownCompleted, ShutdownCompletedData{Reason: "SIGINT"})

	s, err := LoadRun(t.Context(), store, testRunID)
	require.NoError(t, err)

	assert.Equal(t, "hub", s.Daemon)
	assert.Equal(t, "2.1", s.Version)
	assert.Equal(t, []string{"a", "b"}, s.DriverNames())
	assert.Equal(t, "stop", s.Drivers["a"])
	assert.Equal(t, "start-failed", s.Drivers["b"])
	assert.Len(t, s.Phases, 1)
	assert.Equal(t, 1, s.Workspaces)
	assert.Equal(t, 2, s.Failures)
	assert.Equal(t, "SIGINT", s.Reason)
	require.NotNil(t, s.StoppedAt)
}
