package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/thebtf/dilse/internal/clock"
	"github.com/thebtf/dilse/internal/ledger"
	"github.com/thebtf/dilse/pkg/models"
)

// counter sums the data points of the named int64 counter whose attributes
// include attr.
func counter(t *testing.T, reader *sdkmetric.ManualReader, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestEngineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	store := ledger.NewMemoryStore()
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	engine := NewEngine(store, WithClock(clock.Fixed(now)), WithMeterProvider(mp))
	defer engine.Close()

	ctx := context.Background()
	alice := &models.Identity{UID: "alice"}
	engine.SetIdentity(alice)
	engine.Wait()

	_, err := engine.AddSession(ctx, models.ToolBreathing, "Breathing Exercise", 4)
	require.NoError(t, err)

	store.BeforeOp = func(_ context.Context, op string) error {
		if op == ledger.OpAddPractice || op == ledger.OpListPractice {
			return ledger.Unavailable(op, errors.New("connection reset"))
		}
		return nil
	}
	receipt, err := engine.AddSession(ctx, models.ToolBreathing, "Breathing Exercise", 6)
	require.NoError(t, err)
	require.False(t, receipt.Persisted)

	engine.SetIdentity(alice)
	engine.Wait()

	breathing := attribute.String("tool", string(models.ToolBreathing))
	assert.EqualValues(t, 2, counter(t, reader, "dilse.practice.sessions_added", breathing))
	assert.EqualValues(t, 1, counter(t, reader, "dilse.practice.add_failures", breathing))
	assert.EqualValues(t, 10, counter(t, reader, "dilse.practice.minutes", breathing))
	assert.EqualValues(t, 1, counter(t, reader, "dilse.practice.reloads", attribute.String("outcome", "ok")))
	assert.EqualValues(t, 1, counter(t, reader, "dilse.practice.reloads", attribute.String("outcome", "error")))
}
