package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.Hit("users")
	r.Hit("users")
	r.Miss("users")
	r.Store("users")
	r.Error("users", "get")
	r.Flush([]string{"users", "orders"}, "after", nil)
	r.Flush([]string{"users"}, "before", errors.New("down"))
	r.Passthrough("caching")
	r.Resolution("cache", true)
	r.Resolution("cache", false)
	r.Load("users", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.lookups.WithLabelValues("users", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lookups.WithLabelValues("users", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stores.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("users", "get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flushes.WithLabelValues("users,orders", "after", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flushes.WithLabelValues("users", "before", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.passthrough.WithLabelValues("caching")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("cache", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("cache", "not_found")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.loadTime))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Hit("c")
		r.Miss("c")
		r.Store("c")
		r.Error("c", "put")
		r.Flush([]string{"c"}, "after", nil)
		r.Passthrough("flushing")
		r.Resolution("flush", false)
		r.Load("c", time.Second)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).Hit("users")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `rawrcache_lookups_total{cache="users",result="hit"} 1`))
}
