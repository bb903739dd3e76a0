// Package metrics exposes refresh outcomes to Prometheus and to a liveness check.
//
// Package-level collectors (registered on the default registry):
//   - kubeconfig_refresh_total{result, stage}
//   - kubeconfig_refresh_duration_seconds
//   - kubeconfig_last_success_timestamp_seconds
//
// Health serves /healthz: 503 until the first successful refresh, 200 while
// the last success is younger than its max age, 503 again once it goes stale.
// Serve(ctx, addr, health) runs /metrics and /healthz until ctx is cancelled.
package metrics
