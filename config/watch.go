package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch observes the configuration file at path and invokes apply with a
// freshly loaded configuration every time it is rewritten. Reloads that fail
// to parse or validate are logged and dropped, the running configuration is
// never replaced with a broken one. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, apply func(*Config)) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()

	if err = watcher.Add(path); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logrus.Warn("[ CONFIG_RELOAD ] cannot read ", path, ": ", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logrus.Warn("[ CONFIG_RELOAD ] ignoring invalid configuration: ", err)
				continue
			}

			logrus.Info("[ CONFIG_RELOAD ] ", path)
			apply(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logrus.Error("[ CONFIG_RELOAD ] watch: ", err)
		}
	}
}
