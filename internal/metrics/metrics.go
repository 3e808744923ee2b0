// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settleup"

// Computation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	computations     *prometheus.CounterVec
	computeDuration  prometheus.Histogram
	rejectedExpenses *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_computations_total",
			Help:      "Balance computations by outcome.",
		}, []string{"outcome"}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_computation_duration_seconds",
			Help:      "Time spent loading a group ledger and computing its balances.",
			Buckets:   prometheus.DefBuckets,
		}),
		rejectedExpenses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_expenses_total",
			Help:      "Expense records rejected during balance computation, by reason.",
		}, []string{"reason"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Connect RPC latency by procedure and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
	m.registry.MustRegister(
		m.computations,
		m.computeDuration,
		m.rejectedExpenses,
		m.rpcDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveComputation records one balance computation.
func (m *Metrics) ObserveComputation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(outcome).Inc()
	m.computeDuration.Observe(elapsed.Seconds())
}

// ObserveRejection counts one rejected expense record.
func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.rejectedExpenses.WithLabelValues(reason).Inc()
}

// Interceptor returns a Connect interceptor that records RPC latency.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if m != nil {
				m.rpcDuration.
					WithLabelValues(req.Spec().Procedure, codeOf(err)).
					Observe(time.Since(start).Seconds())
			}
			return resp, err
		}
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
