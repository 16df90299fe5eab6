package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TxSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_tx_submitted_total",
		Help: "The total number of transactions broadcast, by contract method",
	}, []string{"method"})

	TxConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_tx_confirmed_total",
		Help: "The total number of transactions confirmed, by contract method",
	}, []string{"method"})

	TxFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_tx_failed_total",
		Help: "The total number of transactions that reverted or timed out, by contract method and reason",
	}, []string{"method", "reason"})

	TxConfirmationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "membership_tx_confirmation_seconds",
		Help:    "Time from broadcast to terminal receipt",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
	})

	CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_cache_refreshes_total",
		Help: "The total number of registry cache refreshes, by scope and result",
	}, []string{"scope", "result"})

	EnumeratorProbes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "membership_enumerator_probes_total",
		Help: "The total number of ownerOf probes issued while enumerating credentials",
	})

	EnumeratorPartialScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "membership_enumerator_partial_scans_total",
		Help: "Scans that hit the probe bound before finding every credential the balance promised",
	})
)
