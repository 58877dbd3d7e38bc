package controllers

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts asset writes and import rows. A nil *Metrics records nothing.
type Metrics struct {
	writes     *prometheus.CounterVec
	importRows *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Name:      "asset_writes_total",
			Help:      "Asset write requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assetdesk",
			Name:      "import_rows_total",
			Help:      "Spreadsheet rows by import stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.writes, m.importRows)
	}
	return m
}

func (m *Metrics) write(op string, err error, warnings int) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case warnings > 0:
		outcome = "warned"
	}
	m.writes.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) rows(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.importRows.WithLabelValues(stage).Add(float64(n))
}
