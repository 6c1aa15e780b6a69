package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	m := New()

	m.ReportsTotal.WithLabelValues("priority").Inc()
	m.ReportsTotal.WithLabelValues("priority").Inc()
	m.SectionsTotal.WithLabelValues("impression").Inc()
	m.ShardsWritten.Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportsTotal.WithLabelValues("priority")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SectionsTotal.WithLabelValues("impression")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ShardsWritten))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.FailuresTotal.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.FailuresTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.FailuresTotal))
}
