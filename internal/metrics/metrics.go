// Package metrics はPrometheusメトリクスを提供する
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics はカメラ操作のメトリクスを保持する
// nil のまま使っても何もしない
type Metrics struct {
	registry *prometheus.Registry

	// 取得結果ごとのカウンタ（success, superseded, またはエラー種別）
	Acquisitions *prometheus.CounterVec

	// 撮影枚数
	Captures prometheus.Counter

	// 撮影（描画+エンコード）にかかった時間
	CaptureDuration prometheus.Histogram

	// ギャラリー内の写真枚数
	GallerySize prometheus.Gauge
}

// New は専用のレジストリにメトリクスを登録して返す
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapcam_acquisitions_total",
				Help: "Total number of camera session acquisitions by outcome",
			},
			[]string{"outcome"},
		),
		Captures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snapcam_captures_total",
				Help: "Total number of captured photos",
			},
		),
		CaptureDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapcam_capture_duration_seconds",
				Help:    "Time spent rendering and encoding a still frame",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),
		GallerySize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapcam_gallery_photos",
				Help: "Number of photos currently held in the gallery",
			},
		),
	}
}

// Registry はメトリクスのレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordAcquisition は取得結果を記録する
func (m *Metrics) RecordAcquisition(outcome string) {
	if m == nil {
		return
	}
	m.Acquisitions.WithLabelValues(outcome).Inc()
}

// RecordCapture は撮影を記録する
func (m *Metrics) RecordCapture(duration time.Duration, gallerySize int) {
	if m == nil {
		return
	}
	m.Captures.Inc()
	m.CaptureDuration.Observe(duration.Seconds())
	m.GallerySize.Set(float64(gallerySize))
}
