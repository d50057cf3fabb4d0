package safety

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/openclaw/autopilot/internal/logging"
)

// WatchLimits reloads the validator's limits whenever the config file
// changes on disk. The loader maps the file path to a fresh Limits value;
// load errors keep the previous limits. The returned stop function shuts
// the watcher down.
func (v *Validator) WatchLimits(path string, load func(string) (Limits, error), logger *logging.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file on save, which
	// drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Clean(path)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				limits, err := load(path)
				if err != nil {
					logger.Warn("limits reload failed", map[string]interface{}{
						"path":  path,
						"error": err.Error(),
					})
					continue
				}
				v.SetLimits(limits)
				logger.Info("limits reloaded", map[string]interface{}{
					"path":          path,
					"max_dimension": limits.MaxDimension,
					"max_objects":   limits.MaxObjects,
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("limits watcher error", map[string]interface{}{
					"error": err.Error(),
				})
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
