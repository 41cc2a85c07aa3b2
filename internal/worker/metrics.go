package worker

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// MetricsCollector gathers the current metric values. An OpenTelemetry SDK
// ManualReader satisfies it.
type MetricsCollector interface {
	Collect(ctx context.Context, rm *metricdata.ResourceMetrics) error
}

type metricPoint struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Name       string            `json:"name"`
	Value      int64             `json:"value"`
}

// handleMetrics reports every int64 counter as one point per attribute set.
func (s *Service) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeMessage(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	var rm metricdata.ResourceMetrics
	if err := s.metrics.Collect(r.Context(), &rm); err != nil {
		writeError(w, r, err)
		return
	}

	points := []metricPoint{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				p := metricPoint{Name: m.Name, Value: dp.Value}
				if dp.Attributes.Len() > 0 {
					p.Attributes = make(map[string]string, dp.Attributes.Len())
					for _, kv := range dp.Attributes.ToSlice() {
						p.Attributes[string(kv.Key)] = kv.Value.Emit()
					}
				}
				points = append(points, p)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": points})
}
