package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PolicyWatcher serves the import policy from a file and hot-reloads it when
// the file changes. A failed reload keeps the last good policy.
type PolicyWatcher struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	policy Policy
}

// NewPolicyWatcher loads the initial policy from path. An empty path or a
// missing file leaves the defaults in place until the file shows up.
func NewPolicyWatcher(path string, logger *slog.Logger) (*PolicyWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &PolicyWatcher{path: path, logger: logger, policy: DefaultPolicy}
	if path == "" {
		return w, nil
	}
	policy, err := LoadPolicy(path)
	switch {
	case err == nil:
		w.policy = policy
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("import policy file missing, using defaults", "path", path)
	default:
		return nil, err
	}
	return w, nil
}

// Policy returns the current policy.
func (w *PolicyWatcher) Policy() Policy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.policy
}

// Watch reloads the policy on file changes until ctx is done. The watch is
// on the directory, not the file, so editors that replace the file on save
// keep working.
func (w *PolicyWatcher) Watch(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("policy watcher error", "error", err)
		}
	}
}

func (w *PolicyWatcher) reload() {
	policy, err := LoadPolicy(w.path)
	if err != nil {
		w.logger.Warn("policy reload failed, keeping previous policy", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	w.policy = policy
	w.mu.Unlock()
	w.logger.Info("import policy reloaded",
		"path", w.path,
		"maxFileBytes", policy.MaxFileBytes,
		"allowedExtensions", len(policy.AllowedExtensions))
}
