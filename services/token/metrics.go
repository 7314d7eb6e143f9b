package token

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeValid     = "valid"
	outcomeInvalid   = "invalid"
	outcomeExhausted = "exhausted"
	outcomeError     = "error"
)

// Metrics records token lifecycle counters. A nil *Metrics is a no-op.
type Metrics struct {
	generated   *prometheus.CounterVec
	validations *prometheus.CounterVec
	consumed    prometheus.Counter
	purged      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onetime",
			Name:      "tokens_generated_total",
			Help:      "Tokens issued, by code kind.",
		}, []string{"kind"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onetime",
			Name:      "token_validations_total",
			Help:      "Validation calls, by outcome.",
		}, []string{"outcome"}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onetime",
			Name:      "tokens_consumed_total",
			Help:      "Consume calls that completed.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onetime",
			Name:      "tokens_purged_total",
			Help:      "Expired records removed by the sweeper.",
		}),
	}

	for _, c := range []prometheus.Collector{m.generated, m.validations, m.consumed, m.purged} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeGenerated(digits int) {
	if m == nil {
		return
	}
	kind := "numeric"
	if digits == 0 {
		kind = "opaque"
	}
	m.generated.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeValidation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeConsumed() {
	if m == nil {
		return
	}
	m.consumed.Inc()
}

func (m *Metrics) observePurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}
