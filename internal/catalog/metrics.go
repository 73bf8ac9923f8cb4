package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	labelOp     = "op"
	labelResult = "result"
)

type Metrics struct {
	Products  prometheus.Gauge
	Mutations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products currently held by the catalog",
		}),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_mutations_total",
				Help: "Catalog mutations by operation and result",
			},
			[]string{labelOp, labelResult},
		),
	}

	reg.MustRegister(m.Products, m.Mutations)
	return m
}

func (m *Metrics) observe(op string, err error, size int) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op, resultLabel(err)).Inc()
	m.Products.Set(float64(size))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isErr(err, ErrValidation):
		return "invalid"
	case isErr(err, ErrDuplicateCode):
		return "duplicate"
	case isErr(err, ErrNotFound):
		return "not_found"
	case isErr(err, ErrPersistence):
		return "storage_error"
	default:
		return "error"
	}
}
