package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Reload rebuilds the catalog from the store and the catalog file. Entries in
// the file override stored entries of the same name. On error the current
// catalog is left untouched.
func (e *Engine) Reload(ctx context.Context) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	fresh := catalog.NewMemory()
	if e.store != nil {
		stored, err := e.store.Load(ctx)
		if err != nil {
			return err
		}
		fresh = stored
	}
	if e.catalogPath != "" {
		file, err := catalog.LoadFile(e.catalogPath)
		if err != nil {
			return err
		}
		if err := overlay(fresh, file); err != nil {
			return err
		}
	}

	e.catalog.Replace(fresh)
	e.logger.Debug("catalog loaded", "entries", fresh.Len())
	return nil
}

func overlay(dst, src *catalog.Memory) error {
	for _, entry := range src.Entries() {
		var err error
		switch en := entry.(type) {
		case *catalog.Table:
			err = dst.AddTable(en)
		case *catalog.View:
			err = dst.AddView(en)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Watch reloads the catalog whenever the catalog file changes, until ctx is
// done. onReload, if not nil, is called after every attempt with its error.
// Without a catalog file Watch just waits for ctx.
func (e *Engine) Watch(ctx context.Context, onReload func(error)) error {
	if e.catalogPath == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so watch the directory.
	target := filepath.Clean(e.catalogPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	e.logger.Debug("watching catalog", "path", target)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !e.watches(event, target) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				err := e.Reload(ctx)
				if err != nil {
					e.logger.Error("catalog reload failed", "path", target, "error", err)
				} else {
					e.logger.Info("catalog reloaded", "path", target, "entries", e.catalog.Len())
				}
				if onReload != nil {
					onReload(err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher error", "error", err)
		}
	}
}

// watches reports whether event touches the catalog file or a schema file
// next to it.
func (e *Engine) watches(event fsnotify.Event, target string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == target || filepath.Ext(name) == ".json"
}
