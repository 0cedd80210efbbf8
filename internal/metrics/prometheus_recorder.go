package metrics

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "buildpilot"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	runDuration     prom.Histogram
	runOutcome      *prom.CounterVec
	commandDuration *prom.HistogramVec
	lastRun         prom.Gauge
}

// buildBuckets cover compiler and bundler runs, which routinely take minutes.
var buildBuckets = []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800}

// NewPrometheusRecorder constructs the collectors and registers them on reg. A nil reg gets a
// fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   buildBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total build run duration",
			Buckets:   buildBuckets,
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Build runs by final outcome",
		}, []string{"outcome"}),
		commandDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of external commands by program and exit code",
			Buckets:   buildBuckets,
		}, []string{"program", "exit_code"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcome, pr.commandDuration, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome ResultLabel) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

// ObserveCommandDuration labels by program name only; full command lines would explode
// label cardinality.
func (p *PrometheusRecorder) ObserveCommandDuration(command string, d time.Duration, exitCode int) {
	if p == nil {
		return
	}
	p.commandDuration.WithLabelValues(programName(command), strconv.Itoa(exitCode)).Observe(d.Seconds())
}

func programName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "unknown"
	}
	return filepath.Base(fields[0])
}
