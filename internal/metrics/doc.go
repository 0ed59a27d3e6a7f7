// Package metrics records processing, export and run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never requires nil checks:
//
//	eng := engine.New(mapper, renderer, engine.WithRecorder(metrics.NoopRecorder{}))
//
// Watch mode swaps in a PrometheusRecorder and serves it on /metrics via Serve.
package metrics
