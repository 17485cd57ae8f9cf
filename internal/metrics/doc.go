// Package metrics provides build metrics for docschema.
//
// Components receive a Recorder and never check for nil: NoopRecorder is
// the default and PrometheusRecorder is swapped in when metrics are
// configured. A build run from the CLI writes the gathered registry to a
// node_exporter textfile; the watch command can also serve it over HTTP.
package metrics
