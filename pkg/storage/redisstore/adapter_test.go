package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stash/pkg/observability"
	"github.com/platinummonkey/stash/pkg/storage"
)

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	adapter, err := New(client, "clusterA", 0, opts...)
	require.NoError(t, err)
	return adapter, mr
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter, mr := newTestAdapter(t)

	t.Run("absent key returns nil without error", func(t *testing.T) {
		raw, err := adapter.GetItem(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, raw)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, adapter.SetItem(ctx, "dock", json.RawMessage(`{"isOpen":true}`)))

		raw, err := adapter.GetItem(ctx, "dock")
		require.NoError(t, err)
		assert.JSONEq(t, `{"isOpen":true}`, string(raw))

		// The value lives under the namespaced Redis key.
		stored, err := mr.Get("stash:clusterA:dock")
		require.NoError(t, err)
		assert.JSONEq(t, `{"isOpen":true}`, stored)
	})

	t.Run("remove deletes the key", func(t *testing.T) {
		require.NoError(t, adapter.SetItem(ctx, "tabs", json.RawMessage(`["a"]`)))
		require.NoError(t, adapter.RemoveItem(ctx, "tabs"))

		raw, err := adapter.GetItem(ctx, "tabs")
		require.NoError(t, err)
		assert.Nil(t, raw)
		assert.False(t, mr.Exists("stash:clusterA:tabs"))
	})

	t.Run("absent value deletes instead of storing a tombstone", func(t *testing.T) {
		require.NoError(t, adapter.SetItem(ctx, "dock", json.RawMessage(`null`)))
		assert.False(t, mr.Exists("stash:clusterA:dock"))
	})
}

func TestAdapter_CacheServesRepeatReads(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	adapter, mr := newTestAdapter(t, WithMetrics(metrics))

	require.NoError(t, mr.Set("stash:clusterA:dock", `{"isOpen":true}`))

	for i := 0; i < 3; i++ {
		raw, err := adapter.GetItem(ctx, "dock")
		require.NoError(t, err)
		assert.JSONEq(t, `{"isOpen":true}`, string(raw))
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("redis")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("redis")))
}

func TestAdapter_WriteUpdatesCache(t *testing.T) {
	ctx := context.Background()
	adapter, mr := newTestAdapter(t)

	require.NoError(t, adapter.SetItem(ctx, "dock", json.RawMessage(`{"v":1}`)))

	// Change Redis behind the adapter's back: the cache still wins for reads
	// after a local write.
	require.NoError(t, mr.Set("stash:clusterA:dock", `{"v":99}`))

	raw, err := adapter.GetItem(ctx, "dock")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(raw))

	t.Run("remove evicts the cached value", func(t *testing.T) {
		require.NoError(t, adapter.RemoveItem(ctx, "dock"))
		raw, err := adapter.GetItem(ctx, "dock")
		require.NoError(t, err)
		assert.Nil(t, raw)
	})
}

func TestAdapter_TTL(t *testing.T) {
	ctx := context.Background()
	adapter, mr := newTestAdapter(t, WithTTL(time.Minute))

	require.NoError(t, adapter.SetItem(ctx, "dock", json.RawMessage(`{"v":1}`)))
	assert.Equal(t, time.Minute, mr.TTL("stash:clusterA:dock"))
}

func TestAdapter_BacksAHelper(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	type dockState struct {
		IsOpen bool `json:"isOpen"`
		Height int  `json:"height"`
	}

	helper := storage.New("dock", dockState{Height: 300},
		storage.WithAdapter[dockState](adapter),
		storage.WithAutoInit[dockState](false),
	)
	helper.Init(context.Background())
	helper.Set(dockState{IsOpen: true, Height: 500})

	restored := storage.New("dock", dockState{Height: 300},
		storage.WithAdapter[dockState](adapter),
		storage.WithAutoInit[dockState](false),
	)
	restored.Init(context.Background())

	assert.Equal(t, dockState{IsOpen: true, Height: 500}, restored.Get())
}
