package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	SalesCommitted    *prometheus.CounterVec
	SalesRejected     *prometheus.CounterVec
	PaymentsRecorded  prometheus.Counter
	PaymentsRejected  *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			SalesCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_committed_total",
				Help:      "Total committed sales by payment method.",
			}, []string{"payment_method"}),
			SalesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sales_rejected_total",
				Help:      "Total rejected sale requests by reason.",
			}, []string{"reason"}),
			PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_recorded_total",
				Help:      "Total payments applied against customer balances.",
			}),
			PaymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_rejected_total",
				Help:      "Total rejected payment requests by reason.",
			}, []string{"reason"}),
			NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total WhatsApp reminder attempts by kind and outcome.",
			}, []string{"kind", "status"}),
			DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_batch_duration_seconds",
				Help:      "Duration of reminder dispatch batches.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status class.",
			}, []string{"route", "status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.SalesCommitted,
			metricsInstance.SalesRejected,
			metricsInstance.PaymentsRecorded,
			metricsInstance.PaymentsRejected,
			metricsInstance.NotificationsSent,
			metricsInstance.DispatchDuration,
			metricsInstance.HTTPRequests,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
