// Package metrics exposes Prometheus instrumentation for the ledger server.
package metrics

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "equisplit"

// Metrics holds the server's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	rpcRequests            *prometheus.CounterVec
	rpcDuration            *prometheus.HistogramVec
	ledgerExpenses         prometheus.Gauge
	outstandingSettlements prometheus.Gauge
	projectionCache        *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		rpcRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		ledgerExpenses: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_expenses",
			Help:      "Expenses in the ledger at the last projection.",
		}),
		outstandingSettlements: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outstanding_settlements",
			Help:      "Transfers needed to settle the ledger at the last projection.",
		}),
		projectionCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_cache_lookups_total",
			Help:      "Projection cache lookups by result.",
		}, []string{"result"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Interceptor returns a Connect interceptor counting and timing every RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			m.observeRPC(req.Spec().Procedure, err, time.Since(start))
			return resp, err
		}
	}
}

func (m *Metrics) observeRPC(procedure string, err error, d time.Duration) {
	if m == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = connect.CodeOf(err).String()
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// ObserveProjection records the size of a freshly computed projection.
func (m *Metrics) ObserveProjection(expenses, settlements int) {
	if m == nil {
		return
	}
	m.ledgerExpenses.Set(float64(expenses))
	m.outstandingSettlements.Set(float64(settlements))
}

// CacheLookup records a projection cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.projectionCache.WithLabelValues(result).Inc()
}
