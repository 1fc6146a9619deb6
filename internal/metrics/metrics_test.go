package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	return m.GetCounter().GetValue()
}

func TestObserveIngestIncrementsOutcomeCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveIngest("success", 10*time.Millisecond)
	assert.Equal(t, 1.0, counterValue(t, m.filesIngested.WithLabelValues("success")))
	assert.Equal(t, 0.0, counterValue(t, m.filesIngested.WithLabelValues("error")))
}

func TestObserveCacheLookupSplitsHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveCacheLookup("fileStats", true)
	m.ObserveCacheLookup("fileStats", false)
	m.ObserveCacheLookup("fileStats", false)

	assert.Equal(t, 1.0, counterValue(t, m.cacheHits.WithLabelValues("fileStats")))
	assert.Equal(t, 2.0, counterValue(t, m.cacheMisses.WithLabelValues("fileStats")))
}

func TestObserveDedupRunAccumulatesSummaryCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDedupRun(time.Second, 3, 2, 40, 1)
	m.ObserveDedupRun(time.Second, 1, 0, 5, 0)

	assert.Equal(t, 2.0, counterValue(t, m.dedupRuns))
	assert.Equal(t, 4.0, counterValue(t, m.exactClusters))
	assert.Equal(t, 2.0, counterValue(t, m.similarClusters))
	assert.Equal(t, 45.0, counterValue(t, m.comparisonsRun))
	assert.Equal(t, 1.0, counterValue(t, m.errorPaths))
}
