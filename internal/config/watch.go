package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDefault is the debounce interval for config file events.
// Editors produce bursts of writes; only the settled file matters.
const debounceDefault = 200 * time.Millisecond

// Watch re-reads the config file whenever it changes and applies the
// switches to rt. Blocks until ctx is cancelled. The watch is on the
// parent directory so atomic rename-into-place saves are seen too.
func Watch(ctx context.Context, path string, rt *Runtime) error {
	if path == "" {
		path = DefaultPath()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	// Single debounce timer, reset on each event. Initialized as
	// stopped; the first event starts it.
	debounce := time.NewTimer(debounceDefault)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounce.C:
			cfg, err := Load(path)
			if err != nil {
				// A half-written file parses on the next event; the
				// switches keep their last good values meanwhile.
				continue
			}
			rt.Apply(cfg)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(debounceDefault)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_ = err
		}
	}
}
