package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector implements interfaces.PostingMetrics on a private prometheus registry.
type Collector struct {
	registry        *prometheus.Registry
	postings        *prometheus.CounterVec
	postingDuration *prometheus.HistogramVec
	replays         *prometheus.CounterVec
	retries         prometheus.Counter
	publishFailures prometheus.Counter
	logger          *zap.Logger
}

func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		postings: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_postings_total",
			Help: "Total number of deposit and transfer calls by outcome",
		}, []string{"operation", "outcome"}),
		postingDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_posting_duration_seconds",
			Help:    "Time taken to resolve a posting",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		replays: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_idempotent_replays_total",
			Help: "Total number of postings resolved from an existing idempotency key",
		}, []string{"operation"}),
		retries: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_posting_retries_total",
			Help: "Total number of units of work retried after a transient conflict",
		}),
		publishFailures: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "ledger_event_publish_failures_total",
			Help: "Total number of transaction events that could not be published",
		}),
		logger: logger,
	}
}

func (c *Collector) ObservePosting(operation, outcome string, seconds float64) {
	c.postings.WithLabelValues(operation, outcome).Inc()
	c.postingDuration.WithLabelValues(operation).Observe(seconds)
}

func (c *Collector) IncReplay(operation string) {
	c.replays.WithLabelValues(operation).Inc()
}

func (c *Collector) IncRetry() {
	c.retries.Inc()
}

func (c *Collector) IncPublishFailure() {
	c.publishFailures.Inc()
}

// Registry exposes the collector's registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		c.logger.Info("Starting metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}

func (c *Collector) Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
