// Package config builds the sidecar's runtime configuration.
//
// Load(path) layers three sources with koanf, lowest priority first:
//   - built-in defaults (300s interval, /kube/config, gcloud auth print-access-token)
//   - an optional YAML file (snake_case keys, same names as Config's koanf tags)
//   - environment variables (GKE_CLUSTER_ENDPOINT, GKE_CLUSTER_CA, KUBECONFIG_PATH, ...)
//
// An empty environment variable counts as unset. GKE_CLUSTER_ENDPOINT and
// GKE_CLUSTER_CA are required; when either is missing Load returns a
// *ConfigurationError listing them and the caller must not start the loop.
package config
