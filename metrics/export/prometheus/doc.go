// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [cloudhatch.Engine] and exposes an
// [net/http.Handler] that serves every engine counter. Counter names are
// prefixed cloudhatch_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the
//     Handler where they want it.
//   - Mutate engine state.
package prometheus
