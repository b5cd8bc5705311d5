package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/graphrag/core"
	"github.com/poiesic/graphrag/ingestion"
	"github.com/poiesic/graphrag/search"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIngest(t *testing.T) {
	c := NewCollector("")

	c.ObserveIngest(&ingestion.Result{
		Mode:            ingestion.ModeFull,
		Status:          core.StatusOK,
		Chunks:          3,
		ConceptFailures: 1,
		EdgesSkipped:    2,
		Duration:        time.Second,
	})
	c.ObserveIngest(&ingestion.Result{
		Mode:         ingestion.ModeIncremental,
		Status:       core.StatusDegraded,
		Chunks:       2,
		FilesSkipped: 1,
	})
	c.ObserveIngest(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.IngestRuns.WithLabelValues("full", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IngestRuns.WithLabelValues("incremental", "degraded")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.ChunksIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FilesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ConceptFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EdgesSkipped))
	assert.Equal(t, 2, testutil.CollectAndCount(c.IngestDuration))
}

func TestObserveQueries(t *testing.T) {
	c := NewCollector("test")

	c.ObserveRetrieval(&search.Retrieval{
		Candidates: []search.Candidate{{Text: "a"}, {Text: "b"}},
		Status:     core.StatusOK,
	})
	c.ObserveRetrieval(&search.Retrieval{Status: core.StatusDegraded})
	c.ObserveRetrieval(nil)
	c.ObserveRerank(core.StatusDegraded)
	c.ObserveAsk(core.StatusOK, "")
	c.ObserveAsk(core.StatusDegraded, "no_context")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Retrievals.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Retrievals.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Reranks.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Asks.WithLabelValues("ok", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Asks.WithLabelValues("degraded", "no_context")))

	expected := `
# HELP test_retrieval_candidates Number of merged candidates per retrieval
# TYPE test_retrieval_candidates histogram
test_retrieval_candidates_bucket{le="0"} 1
test_retrieval_candidates_bucket{le="1"} 1
test_retrieval_candidates_bucket{le="2"} 2
test_retrieval_candidates_bucket{le="3"} 2
test_retrieval_candidates_bucket{le="4"} 2
test_retrieval_candidates_bucket{le="5"} 2
test_retrieval_candidates_bucket{le="6"} 2
test_retrieval_candidates_bucket{le="7"} 2
test_retrieval_candidates_bucket{le="8"} 2
test_retrieval_candidates_bucket{le="9"} 2
test_retrieval_candidates_bucket{le="10"} 2
test_retrieval_candidates_bucket{le="+Inf"} 2
test_retrieval_candidates_sum 2
test_retrieval_candidates_count 2
`
	assert.NoError(t, testutil.CollectAndCompare(c.RetrievalSize, strings.NewReader(expected)))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("")
	b := NewCollector("")

	a.ObserveRerank(core.StatusOK)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Reranks.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Reranks.WithLabelValues("ok")))
}

func TestWriteToTextfile(t *testing.T) {
	c := NewCollector("")
	c.ObserveAsk(core.StatusOK, "")

	path := filepath.Join(t.TempDir(), "graphrag.prom")
	require.NoError(t, c.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `graphrag_asks_total{reason="answered",status="ok"} 1`)
}
