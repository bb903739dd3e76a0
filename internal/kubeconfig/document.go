package kubeconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Fixed names used by downstream tooling to locate the cluster entry.
const (
	ClusterName = "external-cluster"
	ContextName = "external-context"
	UserName    = "external-user"
)

// Output encodings accepted by Render.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Document is the on-disk kubeconfig. Field order is the serialization order.
type Document struct {
	APIVersion     string         `json:"apiVersion" yaml:"apiVersion"`
	Kind           string         `json:"kind" yaml:"kind"`
	Clusters       []NamedCluster `json:"clusters" yaml:"clusters"`
	Contexts       []NamedContext `json:"contexts" yaml:"contexts"`
	CurrentContext string         `json:"current-context" yaml:"current-context"`
	Users          []NamedUser    `json:"users" yaml:"users"`
}

type NamedCluster struct {
	Name    string  `json:"name" yaml:"name"`
	Cluster Cluster `json:"cluster" yaml:"cluster"`
}

type Cluster struct {
	Server                   string `json:"server" yaml:"server"`
	CertificateAuthorityData string `json:"certificate-authority-data" yaml:"certificate-authority-data"`
}

type NamedContext struct {
	Name    string  `json:"name" yaml:"name"`
	Context Context `json:"context" yaml:"context"`
}

type Context struct {
	Cluster string `json:"cluster" yaml:"cluster"`
	User    string `json:"user" yaml:"user"`
}

type NamedUser struct {
	Name string `json:"name" yaml:"name"`
	User User   `json:"user" yaml:"user"`
}

type User struct {
	Token string `json:"token" yaml:"token"`
}

// Build returns the single-cluster document for the given values. The
// values are copied verbatim; nothing is decoded or checked.
func Build(endpoint, caData, token string) Document {
	return Document{
		APIVersion: "v1",
		Kind:       "Config",
		Clusters: []NamedCluster{{
			Name:    ClusterName,
			Cluster: Cluster{Server: endpoint, CertificateAuthorityData: caData},
		}},
		Contexts: []NamedContext{{
			Name:    ContextName,
			Context: Context{Cluster: ClusterName, User: UserName},
		}},
		CurrentContext: ContextName,
		Users: []NamedUser{{
			Name: UserName,
			User: User{Token: token},
		}},
	}
}

// Render encodes doc as JSON or YAML.
func Render(doc Document, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("kubeconfig: encode json: %w", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("kubeconfig: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("kubeconfig: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("kubeconfig: unknown format %q", format)
	}
}
