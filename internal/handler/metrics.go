package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/spendlog/spendlog/internal/metrics"
)

// MetricsHandler serves the in-memory counters in the Prometheus text format.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

type sample struct {
	labels string
	value  string
}

type family struct {
	name    string
	kind    string
	help    string
	samples []sample
}

func count(v uint64) string { return strconv.FormatUint(v, 10) }

func families(s metrics.Snapshot) []family {
	return []family{
		{
			name: "spendlog_expenses_written_total", kind: "counter",
			help: "Expense writes by operation.",
			samples: []sample{
				{`op="create"`, count(s.ExpensesCreated)},
				{`op="update"`, count(s.ExpensesUpdated)},
				{`op="delete"`, count(s.ExpensesDeleted)},
			},
		},
		{
			name: "spendlog_insights_cache_hits_total", kind: "counter",
			help:    "Category and summary insights served from cache.",
			samples: []sample{{"", count(s.InsightsCacheHits)}},
		},
		{
			name: "spendlog_insights_cache_misses_total", kind: "counter",
			help:    "Category and summary insights computed from storage.",
			samples: []sample{{"", count(s.InsightsCacheMisses)}},
		},
		{
			name: "spendlog_insights_duration_seconds_count", kind: "counter",
			help:    "Insight computations observed.",
			samples: []sample{{"", count(s.InsightsDurationCount)}},
		},
		{
			name: "spendlog_insights_duration_seconds_sum", kind: "counter",
			help:    "Total time spent computing insights.",
			samples: []sample{{"", strconv.FormatFloat(float64(s.InsightsDurationTotalNs)/1e9, 'f', 6, 64)}},
		},
		{
			name: "spendlog_auth_failures_total", kind: "counter",
			help:    "Requests rejected for missing or invalid credentials.",
			samples: []sample{{"", count(s.AuthFailures)}},
		},
		{
			name: "spendlog_rate_limited_total", kind: "counter",
			help:    "Requests rejected by a rate limit.",
			samples: []sample{{"", count(s.RateLimited)}},
		},
	}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, f := range families(h.snapshotter.Snapshot()) {
		writeFamily(w, f)
	}
}

func writeFamily(w io.Writer, f family) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	for _, s := range f.samples {
		if s.labels == "" {
			_, _ = fmt.Fprintf(w, "%s %s\n", f.name, s.value)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s{%s} %s\n", f.name, s.labels, s.value)
	}
}
