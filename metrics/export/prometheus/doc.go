// Package prometheus renders shopgate counters in Prometheus text
// exposition format. Counter names are prefixed shopgate_*_total.
//
// The exporter never touches a global Prometheus registry; callers mount
// [PrometheusExporter.Handler] wherever they serve metrics.
package prometheus
