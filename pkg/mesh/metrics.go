package mesh

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	meshFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_fetches_total",
		Help: "Completed service exchanges by service and response status.",
	}, []string{"service", "status"})

	meshFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plantmesh_fetch_duration_seconds",
		Help:    "Duration of single service exchanges in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	meshTokenAcquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_token_acquisitions_total",
		Help: "Token endpoint calls by service and outcome.",
	}, []string{"service", "outcome"})

	meshAuthRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_auth_retries_total",
		Help: "Requests retried after a service rejected a cached token.",
	}, []string{"service"})

	meshDiscoveryLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_discovery_lookups_total",
		Help: "Service URL resolutions by service and source.",
	}, []string{"service", "source"})

	meshPingProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_ping_probes_total",
		Help: "Ping probes by service and result.",
	}, []string{"service", "result"})

	meshServiceUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plantmesh_service_up",
		Help: "Whether the monitor currently considers the service healthy.",
	}, []string{"service"})

	meshTelemetryMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plantmesh_telemetry_messages_total",
		Help: "Telemetry messages by delivery result.",
	}, []string{"result"})
)

func recordFetch(service ServiceType, status int) {
	meshFetchesTotal.WithLabelValues(service.String(), strconv.Itoa(status)).Inc()
}

func observeFetchDuration(service ServiceType, d time.Duration) {
	meshFetchDuration.WithLabelValues(service.String()).Observe(d.Seconds())
}

func recordTokenAcquisition(service ServiceType, outcome string) {
	meshTokenAcquisitionsTotal.WithLabelValues(service.String(), outcome).Inc()
}

func recordAuthRetry(service ServiceType) {
	meshAuthRetriesTotal.WithLabelValues(service.String()).Inc()
}

func recordDiscoveryLookup(service ServiceType, source string) {
	meshDiscoveryLookupsTotal.WithLabelValues(service.String(), source).Inc()
}

func recordPing(service ServiceType, result string) {
	meshPingProbesTotal.WithLabelValues(service.String(), result).Inc()
}

func setServiceUp(service ServiceType, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	meshServiceUp.WithLabelValues(service.String()).Set(v)
}

func recordTelemetryMessage(result string) {
	meshTelemetryMessagesTotal.WithLabelValues(result).Inc()
}
