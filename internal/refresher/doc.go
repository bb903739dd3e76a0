// Package refresher keeps the kubeconfig's token fresh.
//
// Refresher.Run checks that the endpoint and CA data are set (otherwise it
// returns a *config.ConfigurationError and never fetches), then loops:
// RunOnce (fetch token, then write kubeconfig; a failed fetch skips the write),
// hand the Result to the Sink, wait for the interval or an early Trigger.
// Cancelling the context is the only way out of the loop.
//
// Lifecycle: Uninitialized -> Refreshing -> Stopped, or Uninitialized ->
// Stopped when required settings are missing.
//
// LogSink is the production Sink: one log line per cycle ("Updated kubeconfig
// with new token" / "Failed to refresh kubeconfig") plus metrics.
package refresher
