package monitoring

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchArtifact calls onChange whenever the file at path is written,
// replaced or removed. The directory is watched rather than the file so
// atomic renames are seen. It blocks until ctx is cancelled.
//
// The model is loaded once; callers use onChange to tell operators a
// restart is needed, never to reload.
func WatchArtifact(ctx context.Context, path string, log *zap.Logger, onChange func(fsnotify.Event)) error {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve artifact path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create artifact watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&relevant == 0 {
				continue
			}
			onChange(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

// ArtifactChangedNotifier returns an onChange callback that logs a warning
// and broadcasts model_artifact_changed on hub.
func ArtifactChangedNotifier(hub *Hub, log *zap.Logger) func(fsnotify.Event) {
	return func(ev fsnotify.Event) {
		msg := "model artifact changed on disk; restart the service to load it"
		log.Warn(msg, zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
		if hub != nil {
			hub.Broadcast(Event{
				Type: EventModelArtifactChanged,
				Data: ArtifactEvent{Path: ev.Name, Operation: ev.Op.String(), Message: msg},
			})
		}
	}
}
