package kubeconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrDirRemoved is returned by Run when the watched directory itself is
// deleted; the kernel drops the watch with it.
var ErrDirRemoved = errors.New("kubeconfig: watched directory removed")

// Watcher reports when the kubeconfig file is removed or renamed away, so
// the refresher can rewrite it without waiting for the next interval.
type Watcher struct {
	path    string
	dir     string
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching the directory that holds path, creating it if
// needed. The parent directory is watched rather than the file itself so the
// watch survives the file being replaced by rename.
func NewWatcher(path string) (*Watcher, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("kubeconfig: watch: mkdir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("kubeconfig: watch: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("kubeconfig: watch %s: %w", dir, err)
	}
	return &Watcher{path: path, dir: dir, watcher: fw}, nil
}

// Run calls onGone each time the kubeconfig disappears. It blocks until
// ctx is cancelled and closes the underlying watcher on return. If the
// directory itself goes away Run returns ErrDirRemoved, since no further
// events can arrive.
func (w *Watcher) Run(ctx context.Context, onGone func()) error {
	defer w.watcher.Close()

	slog.Info("kubeconfig: watching for removal", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if name == w.dir && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				slog.Warn("kubeconfig: watched directory removed, removal detection stopped",
					"dir", w.dir, "op", event.Op.String())
				return ErrDirRemoved
			}
			if name != w.path {
				continue
			}
			// Our own writes land as Create on the target; only a Remove or a
			// Rename of the target itself means someone took the file away.
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Warn("kubeconfig: file removed, scheduling rewrite",
				"path", w.path, "op", event.Op.String())
			onGone()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("kubeconfig: watcher error", "err", err)
		}
	}
}
