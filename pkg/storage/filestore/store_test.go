package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stash/pkg/observability"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, append([]Option{WithSaveDelay(0)}, opts...)...)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func readDocument(t *testing.T, path string) map[string]map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestStore_Load(t *testing.T) {
	t.Run("missing file starts empty", func(t *testing.T) {
		store, _ := newTestStore(t)
		store.Load()

		assert.Empty(t, store.GetState("workspace-1"))
		assert.Empty(t, store.Namespaces())
	})

	t.Run("corrupt file starts empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		store := New(path, WithSaveDelay(0))
		t.Cleanup(func() { store.Close() })
		store.Load()

		assert.Empty(t, store.Namespaces())
	})

	t.Run("valid document restores all namespaces", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		doc := `{"clusterA":{"dock":{"isOpen":true}},"clusterB":{"dock":{"isOpen":false}}}`
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

		store := New(path, WithSaveDelay(0))
		t.Cleanup(func() { store.Close() })
		store.Load()

		assert.JSONEq(t, `{"isOpen":true}`, string(store.GetState("clusterA")["dock"]))
		assert.JSONEq(t, `{"isOpen":false}`, string(store.GetState("clusterB")["dock"]))
		assert.Len(t, store.Namespaces(), 2)
	})
}

func TestStore_SetState(t *testing.T) {
	store, _ := newTestStore(t)
	store.Load()

	store.SetState("ws", "dock", json.RawMessage(`{"height":300}`))
	assert.JSONEq(t, `{"height":300}`, string(store.GetState("ws")["dock"]))

	t.Run("absent value deletes the entry entirely", func(t *testing.T) {
		store.SetState("ws", "dock", nil)
		_, ok := store.GetState("ws")["dock"]
		assert.False(t, ok)
	})

	t.Run("JSON null deletes as well", func(t *testing.T) {
		store.SetState("ws", "dock", json.RawMessage(`{"height":300}`))
		store.SetState("ws", "dock", json.RawMessage(`null`))
		_, ok := store.GetState("ws")["dock"]
		assert.False(t, ok)
	})
}

func TestStore_GetStateReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t)
	store.Load()
	store.SetState("ws", "dock", json.RawMessage(`{"height":300}`))

	record := store.GetState("ws")
	record["dock"] = json.RawMessage(`{"height":999}`)
	delete(record, "dock")

	assert.JSONEq(t, `{"height":300}`, string(store.GetState("ws")["dock"]))
}

func TestStore_FlushWritesDocument(t *testing.T) {
	store, path := newTestStore(t)
	store.Load()

	store.SetState("clusterA", "dock", json.RawMessage(`{"isOpen":true}`))
	store.SetState("clusterB", "dock", json.RawMessage(`{"isOpen":false}`))
	require.NoError(t, store.Flush())

	doc := readDocument(t, path)
	assert.JSONEq(t, `{"isOpen":true}`, string(doc["clusterA"]["dock"]))
	assert.JSONEq(t, `{"isOpen":false}`, string(doc["clusterB"]["dock"]))
}

func TestStore_DeletionLeavesNoProperty(t *testing.T) {
	store, path := newTestStore(t)
	store.Load()

	store.SetState("clusterA", "k", json.RawMessage(`"v"`))
	store.SetState("clusterA", "other", json.RawMessage(`1`))
	require.NoError(t, store.Flush())

	store.SetState("clusterA", "k", nil)
	require.NoError(t, store.Flush())

	doc := readDocument(t, path)
	_, ok := doc["clusterA"]["k"]
	assert.False(t, ok, "deleted key must not survive in the document")
	assert.Contains(t, doc["clusterA"], "other")
}

func TestStore_CoalescesBurstsIntoOneSave(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, WithSaveDelay(100*time.Millisecond), WithMetrics(metrics))
	store.Load()

	store.SetState("ws", "dock", json.RawMessage(`{"v":1}`))
	store.SetState("ws", "dock", json.RawMessage(`{"v":2}`))
	store.SetState("ws", "panel", json.RawMessage(`{"v":3}`))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.StoreSavesTotal.WithLabelValues("ok")) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// The whole burst collapsed into a single save holding the final state.
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StoreSavesTotal.WithLabelValues("ok")))
	doc := readDocument(t, path)
	assert.JSONEq(t, `{"v":2}`, string(doc["ws"]["dock"]))
	assert.JSONEq(t, `{"v":3}`, string(doc["ws"]["panel"]))

	require.NoError(t, store.Close())
}

func TestStore_CloseFlushesPendingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := New(path, WithSaveDelay(time.Hour))
	store.Load()

	store.SetState("ws", "dock", json.RawMessage(`{"v":1}`))
	require.NoError(t, store.Close())

	doc := readDocument(t, path)
	assert.JSONEq(t, `{"v":1}`, string(doc["ws"]["dock"]))
}

func TestStore_WatchReloadsExternalChanges(t *testing.T) {
	store, path := newTestStore(t)
	store.Load()
	store.SetState("ws", "dock", json.RawMessage(`{"v":1}`))
	require.NoError(t, store.Flush())

	require.NoError(t, store.Watch())

	external := []byte(`{"ws":{"dock":{"v":42}}}`)
	require.NoError(t, os.WriteFile(path, external, 0644))

	require.Eventually(t, func() bool {
		raw, ok := store.GetState("ws")["dock"]
		return ok && string(raw) == `{"v":42}`
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_WatchIgnoresOwnWrites(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store, _ := newTestStore(t, WithMetrics(metrics))
	store.Load()
	require.NoError(t, store.Watch())

	store.SetState("ws", "dock", json.RawMessage(`{"v":1}`))
	require.NoError(t, store.Flush())

	// Give the watcher a chance to observe the write before asserting.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StoreReloadsTotal))
	assert.JSONEq(t, `{"v":1}`, string(store.GetState("ws")["dock"]))
}

func TestStore_ScheduleBackups(t *testing.T) {
	store, path := newTestStore(t)
	store.Load()

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		assert.Error(t, store.ScheduleBackups("not a schedule"))
	})

	t.Run("backup copies the document", func(t *testing.T) {
		store.SetState("ws", "dock", json.RawMessage(`{"v":1}`))
		require.NoError(t, store.Flush())

		store.backup()

		data, err := os.ReadFile(path + ".bak")
		require.NoError(t, err)
		var doc map[string]map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.JSONEq(t, `{"v":1}`, string(doc["ws"]["dock"]))
	})
}
