package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long a file must stay quiet before it is reloaded. Editors
// often write a file in several steps.
const settle = 100 * time.Millisecond

// watchFiles reloads paths through ld whenever they change, calling changed
// after each batch of reloads, until ctx is canceled.
//
// The parent directories are watched rather than the files, so files replaced
// by a rename keep being tracked.
func watchFiles(ctx context.Context, ld *loader, paths []string, changed func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	tracked := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		tracked[abs] = p
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	slog.InfoContext(ctx, "Watching files", "files", len(tracked), "dirs", len(dirs))

	pending := make(map[string]bool)
	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			p, ok := tracked[filepath.Clean(event.Name)]
			if !ok || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			pending[p] = true
			timer.Reset(settle)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching files", "err", err)
		case <-timer.C:
			for p := range pending {
				reload(ctx, ld, p)
			}
			clear(pending)
			changed()
		}
	}
}

func reload(ctx context.Context, ld *loader, path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.InfoContext(ctx, "File removed", "path", path)
		ld.unload(path)
		return
	}
	if err := ld.load(path); err != nil {
		// Keep the previous records; the file may be half written.
		slog.WarnContext(ctx, "Failed to reload file", "path", path, "err", err)
	}
}
