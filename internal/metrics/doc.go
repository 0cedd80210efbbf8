// Package metrics records build-run metrics.
//
// Components depend on the Recorder interface. NoopRecorder is the default and does nothing;
// PrometheusRecorder registers collectors on a caller-supplied registry. A run has no
// long-lived scrape endpoint, so metrics leave the process as a Prometheus text file
// (WriteTextfile) or inside the error report archive (EncodeText).
//
//	reg := prom.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	orch := orchestrator.New(state, sink, pipeline,
//	    orchestrator.WithObserver(metrics.NewRunObserver(rec)))
package metrics
