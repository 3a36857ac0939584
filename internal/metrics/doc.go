// Package metrics provides the observability hooks for task runs, the watch
// loop and the live-reload channel.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so callers never nil-check:
//
//	type Runner struct {
//	    recorder metrics.Recorder
//	}
//
//	r.recorder.ObserveTaskDuration("styles", time.Since(start))
//
// PrometheusRecorder registers its collectors on a caller-supplied registry,
// which HTTPHandler then exposes (the dev server mounts it at /__metrics).
package metrics
