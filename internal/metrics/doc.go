// Package metrics defines the Prometheus metrics exposed by the
// pipeline. Metrics are registered at init time via promauto and served
// from the operations endpoint in main.
package metrics
