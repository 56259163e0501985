package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"scorekeeper/internal/domain/entity"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			byResult := make(map[string]int64)
			for _, dp := range sum.DataPoints {
				result, _ := dp.Attributes.Value(attribute.Key("result"))
				byResult[result.AsString()] += dp.Value
			}
			out[m.Name] = byResult
		}
	}
	return out
}

func TestMetrics_SyncCounters(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.failUpserts = 1
	engine, err := NewSyncEngine(ctx, store, remote,
		SyncConfig{UserID: testUserID, BatchSize: 50, MaxRetries: DefaultMaxRetries},
		testLogger(), WithSleeper((&recordingSleeper{}).sleep), WithMetrics(metrics))
	require.NoError(t, err)

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))
	require.NoError(t, engine.RequestSync(ctx))

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["sync.runs"]["success"])
	assert.Equal(t, int64(1), sums["sync.runs"]["failure"])
	assert.Equal(t, int64(1), sums["sync.retries"][""])
	assert.Equal(t, int64(1), sums["sync.records.pushed"][""])
}

func TestMetrics_PhotoUploads(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	store := newTestStorage(t)
	blobs := newFakeBlobs()
	q := NewPhotoQueue(store, blobs, newFakeRemote(), staticOnline(true), testUserID, testLogger(), metrics)

	match := seedMatch(t, store)
	_, err = q.Enqueue(ctx, match.ID, []byte("a"), "a.jpg")
	require.NoError(t, err)

	blobs.setErr(errors.New("fail"))
	_, err = q.DrainQueue(ctx)
	require.NoError(t, err)

	blobs.setErr(nil)
	_, err = q.DrainQueue(ctx)
	require.NoError(t, err)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(1), sums["photo.uploads"]["failure"])
	assert.Equal(t, int64(1), sums["photo.uploads"]["success"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.syncRun(context.Background(), "success")
		m.photoUpload(context.Background(), "failure")
	})
}

func TestSetupMetrics(t *testing.T) {
	provider, err := SetupMetrics(false, 0)
	require.NoError(t, err)
	require.NoError(t, provider.Shutdown(context.Background()))
}
