package kubeconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const (
	dirMode = 0o755
	// DefaultFileMode lets a reader sharing the pod's fsGroup load the file.
	DefaultFileMode os.FileMode = 0o640
)

// WriteError is returned when the kubeconfig cannot be rendered or stored.
type WriteError struct {
	Path string
	// Op is the step that failed: render | validate | mkdir | write.
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("kubeconfig: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer renders and stores kubeconfig documents.
type Writer struct {
	// Format is json or yaml; empty means json.
	Format string
	// Validate runs Validate on the rendered bytes before anything touches disk.
	Validate bool
	// Mode is the permission of the written file; zero means DefaultFileMode.
	Mode os.FileMode
}

// Write renders the document for endpoint, caData and token and replaces the
// file at path with it. Missing parent directories are created. The new
// content lands via rename so readers never see a partially written file.
func (w Writer) Write(endpoint, caData, token, path string) error {
	data, err := Render(Build(endpoint, caData, token), w.Format)
	if err != nil {
		return &WriteError{Path: path, Op: "render", Err: err}
	}
	if w.Validate {
		if err := Validate(data); err != nil {
			return &WriteError{Path: path, Op: "validate", Err: err}
		}
	}
	mode := w.Mode
	if mode == 0 {
		mode = DefaultFileMode
	}
	return writeAtomic(path, data, mode)
}

// writeAtomic creates the parent directory and swaps data into path with
// renameio, which stages a temp file in the same directory, fsyncs it and
// renames it over the target.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return &WriteError{Path: path, Op: "mkdir", Err: err}
	}
	if err := renameio.WriteFile(path, data, mode, renameio.WithTempDir(dir), renameio.IgnoreUmask()); err != nil {
		return &WriteError{Path: path, Op: "write", Err: err}
	}
	return nil
}
