// Package metrics records daemon lifecycle metrics.
//
// Components receive a Recorder through injection and default to NoopRecorder,
// so nothing needs a nil check:
//
//	d := daemon.New(opts) // NoopRecorder
//	d := daemon.New(daemon.Options{Recorder: metrics.NewPrometheusRecorder(reg)})
//
// PrometheusRecorder registers its collectors into the registry it is given,
// and HTTPHandler serves that registry for scraping.
package metrics
