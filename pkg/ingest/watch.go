package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-corridors/pkg/logging"
)

// DefaultWatchDelay is the debounce applied to bursts of file events.
const DefaultWatchDelay = 2 * time.Second

// Watch calls reload after path changes on disk, coalescing events that
// arrive within delay of each other. The parent directory is watched so that
// editors replacing the file by rename are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, delay time.Duration, reload func(context.Context) error, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if delay <= 0 {
		delay = DefaultWatchDelay
	}
	logger = logger.With(logging.Component("dataset-watcher"), logging.Path(path))

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching corridor dataset")

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	fire := func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		if err := reload(ctx); err != nil {
			logger.Error("reload after file change failed", logging.Error(err))
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("dataset changed", logging.String("op", event.Op.String()))

			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timer = time.AfterFunc(delay, fire)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("file watcher error", logging.Error(err))
		}
	}
}
