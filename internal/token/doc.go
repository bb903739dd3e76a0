// Package token obtains short-lived bearer tokens from an identity provider CLI.
//
// Fetcher runs a fixed argv (default: gcloud auth print-access-token) under a
// per-call timeout. Exit 0 with non-empty stdout yields the trimmed token;
// anything else yields a *FetchError carrying the exit code and stderr.
// There is no caching and no retry: the refresh loop owns the recovery policy.
package token
