package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoaderRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLoader(reg)

	m.BatchesTotal.WithLabelValues("train").Add(3)
	m.DatasetSamples.WithLabelValues("train").Set(12)
	m.DecodeSeconds.WithLabelValues("train").Observe(0.001)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("train")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.DatasetSamples.WithLabelValues("train")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "spinload_batches_total")
	assert.Contains(t, names, "spinload_decode_duration_seconds")
}

func TestNewLoaderNilRegistry(t *testing.T) {
	a := NewLoader(nil)
	b := NewLoader(nil)
	a.SamplesTotal.WithLabelValues("x").Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SamplesTotal.WithLabelValues("x")))
}
