package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vantage6/console/pkg/observability"
)

// Watch re-loads the config file whenever it changes on disk and delivers
// the result to onChange. Only file-backed settings participate in hot
// reload; environment overrides are re-applied on every reload. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *observability.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops the
	// watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg := defaults()
			if err := loadFile(cfg, path); err != nil {
				logger.WithError(err).Warn("Ignoring config reload with unreadable file")
				continue
			}
			applyEnv(cfg)
			cfg.Observability.LogLevel = observability.ParseLogLevel(cfg.Observability.LogLevelName)
			if err := cfg.Validate(); err != nil {
				logger.WithError(err).Warn("Ignoring invalid config reload")
				continue
			}

			logger.Infof("Config file %s reloaded", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Config watcher error")
		}
	}
}
