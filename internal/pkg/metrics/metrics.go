package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_events_consumed_total",
			Help: "Total number of bus events consumed",
		},
		[]string{"service", "type"},
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_events_published_total",
			Help: "Total number of bus events published",
		},
		[]string{"type"},
	)

	duplicateDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_duplicate_deliveries_total",
			Help: "Total number of redelivered messages dropped by dedup",
		},
		[]string{"service"},
	)

	poisonMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_poison_messages_total",
			Help: "Total number of unparseable messages dropped",
		},
		[]string{"service"},
	)

	busReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_bus_reconnects_total",
			Help: "Total number of subscriber reconnect attempts",
		},
		[]string{"subscriber"},
	)
)

func RecordEventConsumed(service, eventType string) {
	eventsConsumedTotal.WithLabelValues(service, eventType).Inc()
}

func RecordEventPublished(eventType string) {
	eventsPublishedTotal.WithLabelValues(eventType).Inc()
}

func RecordDuplicateDelivery(service string) {
	duplicateDeliveriesTotal.WithLabelValues(service).Inc()
}

func RecordPoisonMessage(service string) {
	poisonMessagesTotal.WithLabelValues(service).Inc()
}

func RecordBusReconnect(subscriber string) {
	busReconnectsTotal.WithLabelValues(subscriber).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
