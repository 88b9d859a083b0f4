package shmem

import (
	"net/http"
	"sync"
	"testing"

	"github.com/heptiolabs/healthcheck"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/shmem/internal/mapping"
)

func TestConcurrentNonOwnerOpens(t *testing.T) {
	id := mapping.RandomID()
	creator, err := NewConf().OSID(id).Size(4096).Create()
	require.NoError(t, err)
	defer creator.Close()

	pool, err := ants.NewPool(8)
	require.NoError(t, err)
	defer pool.Release()

	const openers = 32
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		sizes []int
	)
	for i := 0; i < openers; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			seg, oerr := NewConf().OSID(id).Open()
			if oerr != nil {
				t.Errorf("concurrent open failed: %v", oerr)
				return
			}
			mu.Lock()
			sizes = append(sizes, seg.Len())
			mu.Unlock()
			seg.Close()
		}))
	}
	wg.Wait()

	require.Len(t, sizes, openers)
	for _, size := range sizes {
		assert.Equal(t, 4096, size, "all openers observe the same mapped size")
	}

	// The region survives all those non-owner closes.
	again, err := NewConf().OSID(id).Open()
	require.NoError(t, err)
	again.Close()
}

func TestOtelInstrumentation(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter("shmem_test")
	tracer := tracenoop.NewTracerProvider().Tracer("shmem_test")

	seg, err := NewConf().Size(1024).WithMeter(meter).WithTracer(tracer).Create()
	require.NoError(t, err)

	opener, err := NewConf().OSID(seg.OSID()).WithMeter(meter).WithTracer(tracer).Open()
	require.NoError(t, err)

	opener.Close()
	seg.Close()
}

var segmentCreations = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "shmem_segment_creations_total",
	Help: "Total number of segments created by the test process.",
})

func init() {
	prometheus.MustRegister(segmentCreations)
}

func TestPrometheusSegmentCounter(t *testing.T) {
	before := counterValue(segmentCreations)

	for i := 0; i < 3; i++ {
		seg, err := NewConf().Size(256).Create()
		require.NoError(t, err)
		segmentCreations.Inc()
		seg.Close()
	}

	assert.Equal(t, before+3, counterValue(segmentCreations))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestHealthcheckNoLeakedSegments(t *testing.T) {
	seg, err := NewConf().Size(512).Create()
	require.NoError(t, err)

	id := seg.OSID()
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("segment-released", func() error {
		if _, live := liveSegments.Get(id); live {
			return assert.AnError
		}
		return nil
	})

	req, _ := http.NewRequest("GET", "/live", nil)
	rw := &testResponseWriter{}
	health.ServeHTTP(rw, req)
	assert.Equal(t, 503, rw.status, "live segment keeps the check failing")

	seg.Close()
	rw = &testResponseWriter{}
	health.ServeHTTP(rw, req)
	assert.Equal(t, 200, rw.status)
}

type testResponseWriter struct {
	headers http.Header
	status  int
	body    []byte
}

func (w *testResponseWriter) Header() http.Header {
	if w.headers == nil {
		w.headers = make(http.Header)
	}
	return w.headers
}

func (w *testResponseWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *testResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
}
