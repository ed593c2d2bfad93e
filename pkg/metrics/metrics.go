package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ModuleFerry = "ferry"

	LabelPool  = "pool"
	LabelProxy = "proxy"

	LblEndpoint = "endpoint"
	LblService  = "service"
	LblType     = "type"
	LblResult   = "result"

	opSucc   = "ok"
	opFailed = "err"
)

// RetLabel returns "ok" when err == nil and "err" when err != nil.
func RetLabel(err error) string {
	if err == nil {
		return opSucc
	}
	return opFailed
}

var (
	ExecutorLiveGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ModuleFerry,
			Subsystem: LabelPool,
			Name:      "executor_live",
			Help:      "Number of live executors per endpoint pool.",
		}, []string{LblEndpoint})

	ExecutorIdleGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: ModuleFerry,
			Subsystem: LabelPool,
			Name:      "executor_idle",
			Help:      "Number of idle executors parked in pool shards.",
		}, []string{LblEndpoint})

	ExecutorReconnectCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ModuleFerry,
			Subsystem: LabelPool,
			Name:      "executor_reconnect_total",
			Help:      "Counter of executor reconnect attempts.",
		}, []string{LblEndpoint, LblResult})

	QueryTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ModuleFerry,
			Subsystem: LabelProxy,
			Name:      "query_total",
			Help:      "Counter of proxy operations.",
		}, []string{LblService, LblType, LblResult})

	QueryDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ModuleFerry,
			Subsystem: LabelProxy,
			Name:      "query_duration_seconds",
			Help:      "Bucketed histogram of proxy operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 20),
		}, []string{LblService, LblType})
)

var registerOnce sync.Once

// RegisterClientMetrics registers all ferry collectors. Idempotent.
func RegisterClientMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ExecutorLiveGauge)
		prometheus.MustRegister(ExecutorIdleGauge)
		prometheus.MustRegister(ExecutorReconnectCounter)
		prometheus.MustRegister(QueryTotalCounter)
		prometheus.MustRegister(QueryDurationHistogram)
	})
}
