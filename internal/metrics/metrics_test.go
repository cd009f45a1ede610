package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Settlement(OutcomeSettled, 100000, 5000)
	m.Settlement(OutcomeAlreadyProcessed, 100000, 5000)
	m.Withdrawal(OutcomeCompleted, 40000)
	m.Withdrawal(OutcomeDeclined, 10000)
	m.GatewayCall(OutcomeCompleted, 150*time.Millisecond)
	m.Compensation(true)
	m.Compensation(false)

	require.InDelta(t, 1, testutil.ToFloat64(m.settlements.WithLabelValues(OutcomeSettled)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.settlements.WithLabelValues(OutcomeAlreadyProcessed)), 0)
	require.InDelta(t, 100000, testutil.ToFloat64(m.credited), 0)
	require.InDelta(t, 5000, testutil.ToFloat64(m.commission), 0)
	require.InDelta(t, 40000, testutil.ToFloat64(m.withdrawn), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.withdrawals.WithLabelValues(OutcomeDeclined)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.compensations.WithLabelValues("failed")), 0)
	require.Equal(t, 1, testutil.CollectAndCount(m.gatewayDuration))
}

func TestNilLedgerIsNoop(t *testing.T) {
	t.Parallel()

	var m *Ledger
	m.Settlement(OutcomeSettled, 1, 1)
	m.Withdrawal(OutcomeCompleted, 1)
	m.GatewayCall("", time.Second)
	m.Compensation(false)

	New(nil).Settlement(OutcomeSettled, 1, 1)
}
