package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "priestwallet"

// Outcome labels shared by the recorders.
const (
	OutcomeSettled          = "settled"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeCompleted        = "completed"
	OutcomeDeclined         = "declined"
	OutcomeUnavailable      = "unavailable"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"
)

// Ledger records settlement and withdrawal activity. A nil *Ledger is valid
// and records nothing.
type Ledger struct {
	settlements     *prometheus.CounterVec
	credited        prometheus.Counter
	commission      prometheus.Counter
	withdrawals     *prometheus.CounterVec
	withdrawn       prometheus.Counter
	gatewayDuration *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
}

// New registers the ledger metrics on reg.
func New(reg prometheus.Registerer) *Ledger {
	if reg == nil {
		return &Ledger{}
	}

	m := &Ledger{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Booking settlements by outcome.",
		}, []string{"outcome"}),
		credited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credited_paise_total",
			Help:      "Priest share credited to wallets, in paise.",
		}),
		commission: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commission_paise_total",
			Help:      "Platform commission recognised, in paise.",
		}),
		withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests by outcome.",
		}, []string{"outcome"}),
		withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawn_paise_total",
			Help:      "Amount paid out through the gateway, in paise.",
		}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payout_gateway_duration_seconds",
			Help:      "Latency of payout gateway calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "withdrawal_compensations_total",
			Help:      "Reservation releases after failed payouts.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.settlements,
		m.credited,
		m.commission,
		m.withdrawals,
		m.withdrawn,
		m.gatewayDuration,
		m.compensations,
	)

	return m
}

func (m *Ledger) Settlement(outcome string, priestShare, commission int64) {
	if m == nil || m.settlements == nil {
		return
	}

	m.settlements.WithLabelValues(normalize(outcome)).Inc()

	if outcome == OutcomeSettled {
		m.credited.Add(float64(priestShare))
		m.commission.Add(float64(commission))
	}
}

func (m *Ledger) Withdrawal(outcome string, amount int64) {
	if m == nil || m.withdrawals == nil {
		return
	}

	m.withdrawals.WithLabelValues(normalize(outcome)).Inc()

	if outcome == OutcomeCompleted {
		m.withdrawn.Add(float64(amount))
	}
}

func (m *Ledger) GatewayCall(outcome string, d time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}

	m.gatewayDuration.WithLabelValues(normalize(outcome)).Observe(d.Seconds())
}

// Compensation counts reservation releases; ok=false means the release
// itself failed and the wallet needs manual attention.
func (m *Ledger) Compensation(ok bool) {
	if m == nil || m.compensations == nil {
		return
	}

	result := "released"
	if !ok {
		result = "failed"
	}

	m.compensations.WithLabelValues(result).Inc()
}

func normalize(label string) string {
	if label == "" {
		return "unknown"
	}

	return label
}
