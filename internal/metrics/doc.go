// Package metrics registers the Prometheus collectors convertify exposes.
//
// Collectors live on the default registry via promauto; the CLI serves them
// with promhttp when metrics.listen (or --metrics-listen) is set.
package metrics
