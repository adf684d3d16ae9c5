package imagegen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func isImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// outputWatcher reports image files created under dir after it was opened.
// Fooocus writes into per-day subdirectories, so new directories are watched
// as they appear.
type outputWatcher struct {
	w   *fsnotify.Watcher
	dir string
}

func newOutputWatcher(dir string) (*outputWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	// today's folder usually exists already
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.IsDir() {
			_ = w.Add(filepath.Join(dir, e.Name()))
		}
	}
	return &outputWatcher{w: w, dir: dir}, nil
}

// Next blocks until a new image file appears. A deadline on ctx yields an
// empty path and no error: the render simply produced nothing in time.
func (o *outputWatcher) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", nil
			}
			return "", ctx.Err()

		case event, ok := <-o.w.Events:
			if !ok {
				return "", errors.New("watcher closed")
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = o.w.Add(event.Name)
				continue
			}
			if isImage(event.Name) {
				return event.Name, nil
			}

		case err, ok := <-o.w.Errors:
			if !ok {
				return "", errors.New("watcher closed")
			}
			return "", fmt.Errorf("watch %s: %w", o.dir, err)
		}
	}
}

func (o *outputWatcher) Close() error {
	return o.w.Close()
}
