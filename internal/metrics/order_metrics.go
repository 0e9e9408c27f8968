package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций над заказами.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated   prometheus.Counter
	createFailed    prometheus.Counter
	transitions     *prometheus.CounterVec
	transitionsFail prometheus.Counter

	// Гистограмма времени создания заказа
	createDuration prometheus.Histogram

	// Счётчики побочных эффектов
	receivablesPaid prometheus.Counter
	auditEvents     prometheus.Counter
	outboxEvents    prometheus.Counter
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_orders_created_total",
			Help: "Total number of orders created successfully",
		}),
		createFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_orders_create_failed_total",
			Help: "Total number of rejected order creation attempts",
		}),
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "dop_order_transitions_total",
			Help: "Total number of order status transitions grouped by destination status",
		}, []string{"status"}),
		transitionsFail: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_order_transitions_failed_total",
			Help: "Total number of rejected order status transitions",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "dop_order_create_duration_seconds",
			Help:    "Duration of order creation transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		receivablesPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_receivables_paid_total",
			Help: "Total number of receivable financial entries settled on delivery",
		}),
		auditEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_audit_events_total",
			Help: "Total number of audit events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dop_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordCreateFailed увеличивает счётчик отклонённых заказов.
func (m *OrderMetrics) RecordCreateFailed() {
	m.createFailed.Inc()
}

// RecordCreateDuration записывает время выполнения транзакции создания.
func (m *OrderMetrics) RecordCreateDuration(duration time.Duration) {
	m.createDuration.Observe(duration.Seconds())
}

// RecordTransition увеличивает счётчик переходов в указанный статус.
func (m *OrderMetrics) RecordTransition(status string) {
	m.transitions.WithLabelValues(status).Inc()
}

// RecordTransitionFailed увеличивает счётчик отклонённых переходов.
func (m *OrderMetrics) RecordTransitionFailed() {
	m.transitionsFail.Inc()
}

// RecordReceivablesPaid увеличивает счётчик оплаченных receivable записей.
func (m *OrderMetrics) RecordReceivablesPaid(count int) {
	m.receivablesPaid.Add(float64(count))
}

// RecordAuditEvent увеличивает счётчик записей аудита.
func (m *OrderMetrics) RecordAuditEvent() {
	m.auditEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
