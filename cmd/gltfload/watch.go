package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-gltf/engine/resource"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func watchFlags(fs *flag.FlagSet) func(ctx context.Context, e *env, file string) error {
	settle := fs.Duration("settle", 100*time.Millisecond, "wait this long after a change before reloading")

	return func(ctx context.Context, e *env, file string) error {
		// Absolute paths make the cache keys of external buffers match the watcher's keys.
		path, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(err, "resolve %s", file)
		}

		w, err := resource.NewWatcher(e.loader.Cache(), e.log)
		if err != nil {
			return err
		}
		defer w.Close()

		reload := func() {
			e.loader.Evict(path)
			res, err := e.loader.Load(ctx, path)
			if err != nil {
				e.log.Error("reload failed", zap.String("path", path), zap.Error(err))
				return
			}
			printInfo(os.Stdout, res, false)
			watchDependencies(w, e, path)
		}

		if err := w.Add(path); err != nil {
			return err
		}
		reload()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return nil
			case changed, ok := <-w.Changes():
				if !ok {
					return nil
				}
				e.log.Info("changed", zap.String("path", changed))
				timer = time.After(*settle)
			case <-timer:
				timer = nil
				reload()
			}
		}
	}
}

// watchDependencies adds every cached local resource, so edits to .bin files and textures reload too.
func watchDependencies(w *resource.Watcher, e *env, path string) {
	for _, key := range e.loader.Cache().Keys() {
		if key == path || resource.IsRemote(key) || resource.IsDataURI(key) || strings.HasPrefix(key, "file://") {
			continue
		}
		if err := w.Add(key); err != nil {
			e.log.Warn("cannot watch dependency", zap.String("path", key), zap.Error(err))
		}
	}
}
