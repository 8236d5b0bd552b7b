package metrics

import (
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type MarketMetrics struct {
	transitions   *prometheus.CounterVec
	escrowBalance prometheus.Gauge
	entriesLive   prometheus.Gauge
	bidsLive      prometheus.Gauge
	httpDuration  *prometheus.HistogramVec
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide marketplace metrics registry.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_transitions_total",
				Help: "Count of marketplace state transitions by operation and result.",
			}, []string{"operation", "result"}),
			escrowBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_escrow_balance_wei",
				Help: "Funds currently held by the escrow vault, in wei.",
			}),
			entriesLive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_entries_live",
				Help: "Number of live sale entries.",
			}),
			bidsLive: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_bids_live",
				Help: "Number of live bids across all entries.",
			}),
			httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "market_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status class.",
				Buckets: prometheus.DefBuckets,
			}, []string{"route", "status"}),
		}
		prometheus.MustRegister(
			marketRegistry.transitions,
			marketRegistry.escrowBalance,
			marketRegistry.entriesLive,
			marketRegistry.bidsLive,
			marketRegistry.httpDuration,
		)
	})
	return marketRegistry
}

// RecordTransition counts one engine call. result is "ok" or "error".
func (m *MarketMetrics) RecordTransition(operation, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, result).Inc()
}

// SetEscrowBalance publishes the vault balance. Values beyond float64
// precision are reported approximately; the gauge is for dashboards, not
// accounting.
func (m *MarketMetrics) SetEscrowBalance(balance *big.Int) {
	if m == nil || balance == nil {
		return
	}
	value, _ := new(big.Float).SetInt(balance).Float64()
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return
	}
	m.escrowBalance.Set(value)
}

// SetLiveCounts publishes the live entry and bid totals.
func (m *MarketMetrics) SetLiveCounts(entries, bids uint64) {
	if m == nil {
		return
	}
	m.entriesLive.Set(float64(entries))
	m.bidsLive.Set(float64(bids))
}

// ObserveHTTP records one served HTTP request.
func (m *MarketMetrics) ObserveHTTP(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}
