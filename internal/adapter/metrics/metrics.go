package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PlatformMetrics holds all Prometheus metrics for the coupon platform.
type PlatformMetrics struct {
	IssueDuration       *prometheus.HistogramVec
	GrantsTotal         *prometheus.CounterVec
	RedemptionsTotal    *prometheus.CounterVec
	RateLimitDecisions  *prometheus.CounterVec
	TenantCacheHits     prometheus.Counter
	TenantCacheMisses   prometheus.Counter
	StaffKeyCacheHits   prometheus.Counter
	StaffKeyCacheMisses prometheus.Counter
}

// NewPlatformMetrics initializes and registers the Prometheus metrics.
func NewPlatformMetrics() *PlatformMetrics {
	return &PlatformMetrics{
		IssueDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promogate",
			Subsystem: "issuance",
			Name:      "duration_seconds",
			Help:      "Duration of coupon issuance requests in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"result"}), // result: issued, reused, rejected, error
		GrantsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "issuance",
			Name:      "grants_total",
			Help:      "Total number of issuance attempts by result.",
		}, []string{"result"}),
		RedemptionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "redemption",
			Name:      "redemptions_total",
			Help:      "Total number of redemption attempts by result.",
		}, []string{"result"}), // result: redeemed, rejected, error
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by outcome (allowed, denied, indeterminate).",
		}, []string{"outcome"}),
		TenantCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "tenant",
			Name:      "cache_hits_total",
			Help:      "Total number of tenant resolution cache hits.",
		}),
		TenantCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "tenant",
			Name:      "cache_misses_total",
			Help:      "Total number of tenant resolution cache misses.",
		}),
		StaffKeyCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "auth",
			Name:      "staff_key_cache_hits_total",
			Help:      "Total number of staff key cache hits.",
		}),
		StaffKeyCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "promogate",
			Subsystem: "auth",
			Name:      "staff_key_cache_misses_total",
			Help:      "Total number of staff key cache misses.",
		}),
	}
}
