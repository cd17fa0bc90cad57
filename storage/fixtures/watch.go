package fixtures

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
)

// WatchDelay is how long Watch waits for writes to settle before reloading.
const WatchDelay = 200 * time.Millisecond

// Watch calls onChange with the freshly loaded fixtures every time the file at path is
// written, until ctx is done. Files that fail to load are logged and skipped.
func Watch(ctx context.Context, path string, logger core.Logger, onChange func(File)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	// editors often replace the file, so the directory is watched
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watching %s", path)
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			fire = time.After(WatchDelay)
		case <-fire:
			fire = nil
			f, err := Load(path)
			if err != nil {
				logger.Error("Could not reload fixtures", err)
				continue
			}
			onChange(f)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Fixtures watcher error", err)
		}
	}
}
