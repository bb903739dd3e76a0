package kubeconfig

import (
	"fmt"

	"k8s.io/client-go/tools/clientcmd"
)

// Validate loads data the way kubectl and client-go would and runs
// clientcmd's structural checks on it. The CA data must be valid base64.
func Validate(data []byte) error {
	cfg, err := clientcmd.Load(data)
	if err != nil {
		return fmt.Errorf("kubeconfig: load: %w", err)
	}
	if err := clientcmd.Validate(*cfg); err != nil {
		return fmt.Errorf("kubeconfig: validate: %w", err)
	}
	if cfg.CurrentContext != ContextName {
		return fmt.Errorf("kubeconfig: current-context is %q, want %q", cfg.CurrentContext, ContextName)
	}
	return nil
}
