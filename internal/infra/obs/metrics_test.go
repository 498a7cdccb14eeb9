package obs

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObserveRefund(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRefund("yachts", "<24h", "succeeded", "USD", 15000)
	m.ObserveRefund("helicopters", "48h+", "succeeded", "USD", 50000)
	m.ObserveRefund("cars", "<24h", "not_required", "USD", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refundsTotal.WithLabelValues("yachts", "<24h", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refundsTotal.WithLabelValues("other", "48h+", "succeeded")))
	assert.Equal(t, 65000.0, testutil.ToFloat64(m.refundedMinor.WithLabelValues("USD")))
}

func TestMetricsObserveCommand(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCommand("refund.process", 20*time.Millisecond, nil)
	m.ObserveCommand("refund.process", 30*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("refund.process", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("refund.process", "error")))
}
