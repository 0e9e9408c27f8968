package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetricsWithRegisterer(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newOrderMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.createFailed == nil {
		t.Error("createFailed counter should not be nil")
	}
	if metrics.transitions == nil {
		t.Error("transitions counter vec should not be nil")
	}
	if metrics.transitionsFail == nil {
		t.Error("transitionsFail counter should not be nil")
	}
	if metrics.createDuration == nil {
		t.Error("createDuration histogram should not be nil")
	}
	if metrics.receivablesPaid == nil {
		t.Error("receivablesPaid counter should not be nil")
	}
	if metrics.auditEvents == nil {
		t.Error("auditEvents counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

func TestNewOrderMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(reg)
	second := newOrderMetricsWithRegisterer(reg)

	// Повторная регистрация переиспользует уже зарегистрированные коллекторы.
	if first.ordersCreated != second.ordersCreated {
		t.Error("expected shared ordersCreated collector")
	}
	if first.transitions != second.transitions {
		t.Error("expected shared transitions collector")
	}
	if first.createDuration != second.createDuration {
		t.Error("expected shared createDuration collector")
	}
}

func TestRecordOrderCreated(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderCreated()
	metrics.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := metrics.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCreateFailed(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCreateFailed()

	metric := &dto.Metric{}
	if err := metrics.createFailed.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordCreateDuration(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCreateDuration(100 * time.Millisecond)
	metrics.RecordCreateDuration(500 * time.Millisecond)
	metrics.RecordCreateDuration(1 * time.Second)

	metric := &dto.Metric{}
	if err := metrics.createDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", metric.Histogram.GetSampleCount())
	}

	// 0.1 + 0.5 + 1.0 = 1.6
	sum := metric.Histogram.GetSampleSum()
	if sum < 1.5 || sum > 1.7 {
		t.Errorf("expected sum around 1.6, got %f", sum)
	}
}

func TestRecordTransition(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransition("in_picking")
	metrics.RecordTransition("in_picking")
	metrics.RecordTransition("delivered")

	metric := &dto.Metric{}
	if err := metrics.transitions.WithLabelValues("in_picking").Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0 for in_picking, got %f", metric.Counter.GetValue())
	}
}

func TestRecordTransitionFailed(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransitionFailed()

	metric := &dto.Metric{}
	if err := metrics.transitionsFail.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordReceivablesPaid(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordReceivablesPaid(3)

	metric := &dto.Metric{}
	if err := metrics.receivablesPaid.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 3.0 {
		t.Errorf("expected counter value 3.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordAuditAndOutboxEvents(t *testing.T) {
	metrics := newOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordAuditEvent()
	metrics.RecordAuditEvent()
	metrics.RecordOutboxEvent()

	auditMetric := &dto.Metric{}
	if err := metrics.auditEvents.Write(auditMetric); err != nil {
		t.Fatalf("failed to write audit metric: %v", err)
	}
	if auditMetric.Counter.GetValue() != 2.0 {
		t.Errorf("expected 2 audit events, got %f", auditMetric.Counter.GetValue())
	}

	outboxMetric := &dto.Metric{}
	if err := metrics.outboxEvents.Write(outboxMetric); err != nil {
		t.Fatalf("failed to write outbox metric: %v", err)
	}
	if outboxMetric.Counter.GetValue() != 1.0 {
		t.Errorf("expected 1 outbox event, got %f", outboxMetric.Counter.GetValue())
	}
}
