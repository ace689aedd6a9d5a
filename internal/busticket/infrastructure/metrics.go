package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// OperationMetrics conta as operações do TicketService por nome e resultado.
type OperationMetrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

func NewOperationMetrics() *OperationMetrics {
	registry := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busticket",
		Name:      "operations_total",
		Help:      "Operations executed by the ticket service, by outcome.",
	}, []string{"operation", "outcome"})
	registry.MustRegister(operations)

	return &OperationMetrics{
		registry:   registry,
		operations: operations,
	}
}

func (m *OperationMetrics) RecordOperation(operation string, err error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *OperationMetrics) Counter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}

func (m *OperationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
