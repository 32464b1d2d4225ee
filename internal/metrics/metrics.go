package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubQueries counts event-search sub-queries by outcome: ok, error, cached.
	SubQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spot",
		Name:      "event_subqueries_total",
		Help:      "Event search sub-queries by outcome.",
	}, []string{"outcome"})

	// Personalization counts personalization attempts by outcome.
	Personalization = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spot",
		Name:      "personalization_total",
		Help:      "Personalization attempts by outcome.",
	}, []string{"outcome"})

	// Searches counts discovery searches by result.
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spot",
		Name:      "discover_searches_total",
		Help:      "Discovery searches by result.",
	}, []string{"result"})

	// MailSends counts outbound email provider calls by kind and outcome.
	MailSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spot",
		Name:      "mail_requests_total",
		Help:      "Email provider requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	// RateLimited counts requests rejected by the per-client limiter.
	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spot",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by rate limiting, by route.",
	}, []string{"route"})

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		SubQueries,
		Personalization,
		Searches,
		MailSends,
		RateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the service registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
