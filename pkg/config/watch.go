package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dd0wney/cluso-controlroom/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config at path whenever the file is written or
// replaced and sends each valid result on the returned channel. Invalid
// reloads are logged and skipped. The channel closes when ctx is done.
//
// The parent directory is watched so that editors that save by renaming a
// temporary file are still seen.
func Watch(ctx context.Context, path string, logger logging.Logger) (<-chan *Config, error) {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config %s: %w", path, err)
	}

	out := make(chan *Config)
	logger = logger.With(logging.Component("config"), logging.Path(abs))

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				cfg, err := load(abs)
				if err != nil {
					logger.Warn("config reload rejected", logging.Error(err))
					continue
				}
				logger.Info("config reloaded")

				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", logging.Error(err))
			}
		}
	}()

	return out, nil
}
