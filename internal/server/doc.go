// Package server exposes steward's HTTP surface: health, Prometheus
// metrics, application status, and the webhook endpoint that triggers an
// immediate sync for applications whose sources cannot be watched.
package server
