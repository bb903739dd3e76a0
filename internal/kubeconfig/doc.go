// Package kubeconfig renders and stores the single-cluster kubeconfig consumed
// by downstream tooling.
//
// Build(endpoint, caData, token) returns the fixed document:
//
//	apiVersion: v1
//	kind: Config
//	clusters:        [{name: external-cluster, cluster: {server, certificate-authority-data}}]
//	contexts:        [{name: external-context, context: {cluster: external-cluster, user: external-user}}]
//	current-context: external-context
//	users:           [{name: external-user, user: {token}}]
//
// Render encodes it as JSON (default) or YAML (yaml.v3). Writer.Write renders,
// optionally validates with client-go's clientcmd, then replaces the target
// via temp-file + rename in the same directory (mode 0600).
//
// Watcher uses fsnotify on the parent directory to report when the file is
// removed or renamed away by something other than the writer.
package kubeconfig
