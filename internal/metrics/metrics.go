package metrics

import (
	"static2jxl/core/converter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 一次运行的指标，写入 node_exporter textfile 格式
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal         *prometheus.CounterVec
	BytesInputTotal    prometheus.Counter
	BytesOutputTotal   prometheus.Counter
	ConversionDuration *prometheus.HistogramVec
	SkippedTotal       *prometheus.GaugeVec
	CollectedFiles     *prometheus.GaugeVec
	HealthChecks       *prometheus.GaugeVec
	RunDuration        prometheus.Gauge
	ReductionPercent   prometheus.Gauge
}

// New 创建独立注册表上的指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "static2jxl_files_total",
				Help: "Files processed by outcome",
			},
			[]string{"outcome"},
		),
		BytesInputTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "static2jxl_bytes_input_total",
				Help: "Source bytes of successfully converted files",
			},
		),
		BytesOutputTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "static2jxl_bytes_output_total",
				Help: "Output bytes of successfully converted files",
			},
		),
		ConversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "static2jxl_conversion_duration_seconds",
				Help:    "Per-file pipeline duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),
		SkippedTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "static2jxl_collect_skipped_files",
				Help: "Files excluded during collection by reason",
			},
			[]string{"reason"},
		),
		CollectedFiles: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "static2jxl_collected_files",
				Help: "Files queued for conversion by type",
			},
			[]string{"type"},
		),
		HealthChecks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "static2jxl_health_checks",
				Help: "Output health check results",
			},
			[]string{"result"},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "static2jxl_run_duration_seconds",
				Help: "Wall time of the last run",
			},
		),
		ReductionPercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "static2jxl_reduction_percent",
				Help: "Overall size reduction of the last run",
			},
		),
	}
}

// ObserveResult 实现 converter.Observer
func (m *Metrics) ObserveResult(r *converter.Result) {
	m.FilesTotal.WithLabelValues(string(r.Outcome)).Inc()
	m.ConversionDuration.WithLabelValues(string(r.Mode)).Observe(r.Duration.Seconds())
	if r.Outcome == converter.OutcomeSuccess {
		m.BytesInputTotal.Add(float64(r.InputSize))
		m.BytesOutputTotal.Add(float64(r.OutputSize))
	}
}

// ObserveSummary 记录运行结束时的汇总
func (m *Metrics) ObserveSummary(s converter.StatsSnapshot) {
	for reason, n := range s.SkipReasons {
		m.SkippedTotal.WithLabelValues(string(reason)).Set(float64(n))
	}
	for ft, n := range s.Collected {
		m.CollectedFiles.WithLabelValues(ft.String()).Set(float64(n))
	}
	m.HealthChecks.WithLabelValues("passed").Set(float64(s.HealthPassed))
	m.HealthChecks.WithLabelValues("failed").Set(float64(s.HealthFailed))
	m.RunDuration.Set(s.Elapsed.Seconds())
	m.ReductionPercent.Set(s.Reduction())
}

// Registry 底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile 原子写入 textfile
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
