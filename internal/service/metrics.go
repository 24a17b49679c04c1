package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"contact_form/internal/domain"
)

// metricsForm: метрики конвейера отправки
type metricsForm struct {
	once sync.Once

	rejections  *prometheus.CounterVec
	submissions *prometheus.CounterVec
	relayTime   prometheus.Histogram
	toasts      *prometheus.CounterVec
	relayDrops  prometheus.Counter
}

var formMetrics metricsForm

func (m *metricsForm) init() {
	m.once.Do(func() {
		m.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_form_rejections_total",
			Help: "Submissions rejected by pipeline stage",
		}, []string{"stage"})
		m.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_form_submissions_total",
			Help: "Submissions sent to the mail relay by outcome",
		}, []string{"outcome"})
		m.relayTime = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contact_form_relay_seconds",
			Help:    "Mail relay request duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})
		m.toasts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_form_notifications_total",
			Help: "Notifications presented by kind",
		}, []string{"kind"})
		m.relayDrops = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_form_relay_dropped_total",
			Help: "Relay messages dropped for slow subscribers",
		})

		prometheus.MustRegister(m.rejections, m.submissions, m.relayTime, m.toasts, m.relayDrops)
	})
}

func recordRejection(stage domain.Stage) {
	formMetrics.init()
	formMetrics.rejections.WithLabelValues(string(stage)).Inc()
}

func recordSubmission(outcome string, seconds float64) {
	formMetrics.init()
	formMetrics.submissions.WithLabelValues(outcome).Inc()
	formMetrics.relayTime.Observe(seconds)
}

func recordNotification(kind domain.NotificationKind) {
	formMetrics.init()
	formMetrics.toasts.WithLabelValues(string(kind)).Inc()
}

func recordRelayDrop() {
	formMetrics.init()
	formMetrics.relayDrops.Inc()
}
