package trace_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzos/pulse/pkg/pulse/trace"
)

// runStoreSuite exercises the Store contract against any
// implementation.
func runStoreSuite(t *testing.T, store trace.Store) {
	ctx := context.Background()
	now := time.Now()

	recs := []trace.Record{
		{Session: "s1", Seq: 1, At: now, Queue: "input", Kind: 1, Payload: []byte("up"), Outcome: trace.OutcomeHandled},
		{Session: "s1", Seq: 2, At: now, Queue: "input", Kind: 2, Outcome: trace.OutcomeHandlerError, Error: "bad reading"},
		{Session: "s2", Seq: 1, At: now, Queue: "render", Kind: 3, Outcome: trace.OutcomeUnhandled},
	}
	for _, rec := range recs {
		require.NoError(t, store.Append(ctx, rec))
	}

	got, err := store.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, "input", got[0].Queue)
	assert.Equal(t, []byte("up"), got[0].Payload)
	assert.Equal(t, trace.OutcomeHandled, got[0].Outcome)
	assert.Equal(t, "bad reading", got[1].Error)

	got, err = store.List(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, got)

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, sessions)
}

func TestMemoryStore(t *testing.T) {
	store := trace.NewMemoryStore()
	defer store.Close()
	runStoreSuite(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := trace.NewSQLiteStore(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer store.Close()
	runStoreSuite(t, store)
}

func TestSQLiteStore_RoundTripsTimestamps(t *testing.T) {
	store, err := trace.NewSQLiteStore(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	require.NoError(t, store.Append(context.Background(), trace.Record{
		Session: "s", Seq: 1, At: at, Queue: "q", Outcome: trace.OutcomeHandled,
	}))

	got, err := store.List(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].At.Equal(at))
}

func TestSQLiteStore_ClosedStoreErrors(t *testing.T) {
	store, err := trace.NewSQLiteStore(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "double close is harmless")

	assert.Error(t, store.Append(context.Background(), trace.Record{Session: "s", Seq: 1}))
	_, err = store.List(context.Background(), "s")
	assert.Error(t, err)
	_, err = store.Sessions(context.Background())
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	store := trace.NewMemoryStore()
	rec := trace.NewRecorder(store)
	require.NotEmpty(t, rec.Session())

	payload := []byte("press")
	rec.Record(context.Background(), "input", 1, payload, trace.OutcomeHandled, nil)
	rec.Record(context.Background(), "input", 2, nil, trace.OutcomeHandlerError, errors.New("boom"))

	// Mutating the caller's buffer must not disturb the journal.
	payload[0] = 'X'

	got, err := store.List(context.Background(), rec.Session())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, []byte("press"), got[0].Payload)
	assert.Equal(t, "boom", got[1].Error)

	other := trace.NewRecorder(store)
	assert.NotEqual(t, rec.Session(), other.Session(), "sessions are distinct per recorder")
}
