// Package metrics expone contadores Prometheus del motor de lotes.
// Todos los métodos aceptan receptor nil para que los casos de uso funcionen sin métricas.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics colectores del motor.
type Metrics struct {
	operations  *prometheus.CounterVec
	txRetries   *prometheus.CounterVec
	txFailures  *prometheus.CounterVec
	syncResults *prometheus.CounterVec
	divergences prometheus.Counter
}

// New registra los colectores en reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlot",
			Name:      "lot_operations_total",
			Help:      "Operaciones de ciclo de vida de lotes por resultado.",
		}, []string{"operation", "result"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlot",
			Name:      "tx_retries_total",
			Help:      "Reintentos de unidades transaccionales por conflicto o error transitorio.",
		}, []string{"operation"}),
		txFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlot",
			Name:      "tx_failures_total",
			Help:      "Unidades transaccionales abortadas por motivo.",
		}, []string{"operation", "reason"}),
		syncResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedlot",
			Name:      "financial_sync_total",
			Help:      "Sincronizaciones financieras por alcance y resultado.",
		}, []string{"scope", "result"}),
		divergences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedlot",
			Name:      "valuation_divergences_total",
			Help:      "Lotes cuyo valor almacenado diverge del recalculado.",
		}),
	}
	reg.MustRegister(m.operations, m.txRetries, m.txFailures, m.syncResults, m.divergences)
	return m
}

// Operation cuenta una operación de ciclo de vida.
func (m *Metrics) Operation(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

// TxRetry cuenta un reintento.
func (m *Metrics) TxRetry(op string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(op).Inc()
}

// TxFailure cuenta una unidad abortada (conflict, timeout).
func (m *Metrics) TxFailure(op, reason string) {
	if m == nil {
		return
	}
	m.txFailures.WithLabelValues(op, reason).Inc()
}

// Sync cuenta una sincronización financiera.
func (m *Metrics) Sync(scope string, err error) {
	if m == nil {
		return
	}
	m.syncResults.WithLabelValues(scope, resultLabel(err)).Inc()
}

// Divergence cuenta una divergencia de valuación detectada.
func (m *Metrics) Divergence() {
	if m == nil {
		return
	}
	m.divergences.Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
