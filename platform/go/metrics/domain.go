package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain holds business counters shared by the services.
type Domain struct {
	LicensesGenerated   prometheus.Counter
	LicensesActivated   prometheus.Counter
	DomainVerifications *prometheus.CounterVec
	PlansGenerated      *prometheus.CounterVec
	SocialSyncRequests  *prometheus.CounterVec
}

// Business returns the process-wide business counters registered on the default registry.
var Business = sync.OnceValue(func() *Domain {
	return &Domain{
		LicensesGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "licenses_generated_total",
			Help:      "License codes generated by resellers.",
		}),
		LicensesActivated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "licenses_activated_total",
			Help:      "License codes redeemed by tenants.",
		}),
		DomainVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "domain_verifications_total",
			Help:      "Custom domain verification attempts by result.",
		}, []string{"result"}),
		PlansGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "assistant_plans_total",
			Help:      "Content assistant plans by generator.",
		}, []string{"generator"}),
		SocialSyncRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "console",
			Name:      "social_sync_requests_total",
			Help:      "Forced social account syncs by provider.",
		}, []string{"provider"}),
	}
})
