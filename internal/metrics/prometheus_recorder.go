package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	taskDuration     *prom.HistogramVec
	taskResults      *prom.CounterVec
	filesWritten     *prom.CounterVec
	filesSkipped     *prom.CounterVec
	watchEvents      *prom.CounterVec
	reloadBroadcasts *prom.CounterVec
	reloadClients    prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg
// (a fresh registry when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of individual task runs",
			Buckets:   prom.DefBuckets,
		}, []string{"task"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task run counts by outcome",
		}, []string{"task", "result"}),
		filesWritten: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Files written to a destination directory",
		}, []string{"task"}),
		filesSkipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Source files skipped because the destination was up to date",
		}, []string{"task"}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem changes matched by a watch binding",
		}, []string{"binding"}),
		reloadBroadcasts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "livereload_broadcasts_total",
			Help:      "Live-reload notifications pushed to browsers",
		}, []string{"kind"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Currently connected live-reload clients",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.filesWritten, pr.filesSkipped,
		pr.watchEvents, pr.reloadBroadcasts, pr.reloadClients)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFilesWritten(task string, n int) {
	if n > 0 {
		p.filesWritten.WithLabelValues(task).Add(float64(n))
	}
}

func (p *PrometheusRecorder) AddFilesSkipped(task string, n int) {
	if n > 0 {
		p.filesSkipped.WithLabelValues(task).Add(float64(n))
	}
}

func (p *PrometheusRecorder) IncWatchEvent(binding string) {
	p.watchEvents.WithLabelValues(binding).Inc()
}

func (p *PrometheusRecorder) IncLiveReloadBroadcast(kind string) {
	p.reloadBroadcasts.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	p.reloadClients.Set(float64(n))
}
