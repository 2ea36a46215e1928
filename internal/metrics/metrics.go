// Package metrics holds the Prometheus collectors of the batch pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Loader groups the collectors updated by a data loader. Every collector is
// labelled with the loader name.
type Loader struct {
	BatchesTotal   *prometheus.CounterVec
	SamplesTotal   *prometheus.CounterVec
	EpochsTotal    *prometheus.CounterVec
	DecodeSeconds  *prometheus.HistogramVec
	DatasetSamples *prometheus.GaugeVec
	DatasetChunks  *prometheus.GaugeVec
}

// NewLoader registers the loader collectors on reg. A nil reg uses a private
// registry, which keeps the collectors usable without exposing them.
func NewLoader(reg prometheus.Registerer) *Loader {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Loader{
		BatchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinload_batches_total",
				Help: "Total number of batches materialized",
			},
			[]string{"loader"},
		),
		SamplesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinload_samples_total",
				Help: "Total number of samples decoded into batches",
			},
			[]string{"loader"},
		),
		EpochsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinload_epochs_total",
				Help: "Total number of epochs started via reset",
			},
			[]string{"loader"},
		),
		DecodeSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spinload_decode_duration_seconds",
				Help:    "Time spent filling one batch",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"loader"},
		),
		DatasetSamples: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spinload_dataset_samples",
				Help: "Number of samples in the dataset behind a loader",
			},
			[]string{"loader"},
		),
		DatasetChunks: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spinload_dataset_chunks",
				Help: "Number of chunks concatenated by the dataset behind a loader",
			},
			[]string{"loader"},
		),
	}
}
