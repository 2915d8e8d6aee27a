package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QuoteMetrics counts quote lifecycle events and total integrity findings.
type QuoteMetrics struct {
	drift         prometheus.Counter
	repaired      prometheus.Counter
	transitions   *prometheus.CounterVec
	lockConflicts prometheus.Counter
	unpricedLines *prometheus.CounterVec
}

// NewQuoteMetrics registers the quote metrics on the provided registerer.
func NewQuoteMetrics(reg prometheus.Registerer) *QuoteMetrics {
	if reg == nil {
		return &QuoteMetrics{}
	}
	m := &QuoteMetrics{
		drift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_total_drift_total",
			Help: "Quotes whose stored total differed from the recomputed line sum.",
		}),
		repaired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_total_repaired_total",
			Help: "Drifted quote totals rewritten by the audit job.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quote_status_transitions_total",
			Help: "Quote status changes by source and target status.",
		}, []string{"from", "to"}),
		lockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quote_draft_lock_conflicts_total",
			Help: "Quote edits refused because another edit held the draft lock.",
		}),
		unpricedLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quote_unpriced_lines_total",
			Help: "Quote lines left without a price, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.drift, m.repaired, m.transitions, m.lockConflicts, m.unpricedLines)
	return m
}

func (q *QuoteMetrics) IncDrift() {
	if q == nil || q.drift == nil {
		return
	}
	q.drift.Inc()
}

func (q *QuoteMetrics) IncRepaired() {
	if q == nil || q.repaired == nil {
		return
	}
	q.repaired.Inc()
}

func (q *QuoteMetrics) IncTransition(from, to string) {
	if q == nil || q.transitions == nil {
		return
	}
	q.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (q *QuoteMetrics) IncLockConflict() {
	if q == nil || q.lockConflicts == nil {
		return
	}
	q.lockConflicts.Inc()
}

func (q *QuoteMetrics) IncUnpriced(reason string) {
	if q == nil || q.unpricedLines == nil {
		return
	}
	q.unpricedLines.WithLabelValues(normalizeLabel(reason)).Inc()
}
