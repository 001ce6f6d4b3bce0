package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesIssuedTotal,
		issuanceCollisionsTotal,
		redemptionsTotal,
		redemptionLatencyMs,
		entitlementsExpiredTotal,
	)
}

var (
	codesIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codes_issued_total",
			Help: "Total number of access codes issued, by code type.",
		},
		[]string{"code_type"},
	)

	issuanceCollisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code_issuance_collisions_total",
			Help: "Generated candidates skipped due to a code_hash collision.",
		},
		[]string{"code_type"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "code_redemptions_total",
			Help: "Redemption attempts by code type and outcome.",
		},
		[]string{"code_type", "outcome"},
	)

	redemptionLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "code_redemption_latency_ms",
			Help:    "Redemption transaction latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600, 3000},
		},
		[]string{"code_type"},
	)

	entitlementsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_expired_total",
			Help: "Entitlements deactivated by the expiry worker.",
		},
	)
)

func AddCodesIssued(codeType string, n int) {
	codesIssuedTotal.WithLabelValues(codeType).Add(float64(n))
}

func IncIssuanceCollision(codeType string) {
	issuanceCollisionsTotal.WithLabelValues(codeType).Inc()
}

func ObserveRedemption(codeType, outcome string, elapsed time.Duration) {
	redemptionsTotal.WithLabelValues(codeType, outcome).Inc()
	redemptionLatencyMs.WithLabelValues(codeType).Observe(float64(elapsed.Milliseconds()))
}

func IncEntitlementsExpired(count int) {
	entitlementsExpiredTotal.Add(float64(count))
}
