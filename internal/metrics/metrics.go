// Package metrics holds the Prometheus metrics recorded by pimctl and their
// textfile export.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pimctl"

// Metrics holds all Prometheus metrics for pimctl.
// Pass to components that need to record metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ProviderRequests        *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderRetries         *prometheus.CounterVec
	PolicyCacheLookups      *prometheus.CounterVec
	RoleCacheLookups        *prometheus.CounterVec
	TokenAcquisitions       *prometheus.CounterVec
	ActivationOutcomes      *prometheus.CounterVec
	RolesDiscovered         *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ProviderRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of identity provider requests",
			},
			[]string{"operation", "status"}, // status=ok/error
		),
		ProviderRequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Identity provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ProviderRetries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_retries_total",
				Help:      "Requests retried after throttling or unavailability",
			},
			[]string{"operation"},
		),
		PolicyCacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_cache_lookups_total",
				Help:      "Policy cache lookups",
			},
			[]string{"result"}, // result=hit/miss
		),
		RoleCacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "role_cache_lookups_total",
				Help:      "Role cache lookups",
			},
			[]string{"result"}, // result=hit/miss
		),
		TokenAcquisitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_token_acquisitions_total",
				Help:      "Authentication-context token requests",
			},
			[]string{"source", "result"}, // source=cache/interactive, result=ok/error
		),
		ActivationOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "role_requests_total",
				Help:      "Per-role activation and deactivation outcomes",
			},
			[]string{"action", "result"}, // action=activate/deactivate, result=success/failure
		),
		RolesDiscovered: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "roles_discovered",
				Help:      "Roles returned by the last fetch",
			},
			[]string{"status"}, // status=eligible/active
		),
	}
}

// ObserveProviderRequest records one provider call.
func (m *Metrics) ObserveProviderRequest(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(operation, statusLabel(err)).Inc()
	m.ProviderRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncRetry records a retried provider call.
func (m *Metrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.ProviderRetries.WithLabelValues(operation).Inc()
}

// PolicyCacheResult records a policy cache hit or miss.
func (m *Metrics) PolicyCacheResult(hit bool) {
	if m == nil {
		return
	}
	m.PolicyCacheLookups.WithLabelValues(hitLabel(hit)).Inc()
}

// RoleCacheResult records a role cache hit or miss.
func (m *Metrics) RoleCacheResult(hit bool) {
	if m == nil {
		return
	}
	m.RoleCacheLookups.WithLabelValues(hitLabel(hit)).Inc()
}

// TokenAcquired records an authentication-context token request.
func (m *Metrics) TokenAcquired(fromCache bool, err error) {
	if m == nil {
		return
	}
	source := "interactive"
	if fromCache {
		source = "cache"
	}
	m.TokenAcquisitions.WithLabelValues(source, statusLabel(err)).Inc()
}

// RoleRequest records the outcome of one activation or deactivation.
func (m *Metrics) RoleRequest(action string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.ActivationOutcomes.WithLabelValues(action, result).Inc()
}

// SetDiscovered records the size of the last fetch.
func (m *Metrics) SetDiscovered(eligible, active int) {
	if m == nil {
		return
	}
	m.RolesDiscovered.WithLabelValues("eligible").Set(float64(eligible))
	m.RolesDiscovered.WithLabelValues("active").Set(float64(active))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
