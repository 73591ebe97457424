package monitoring

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchArtifact calls onChange whenever one of files inside dir is written,
// created, removed or renamed, until ctx is done. It only reports: the
// running service keeps the artifact it loaded at startup.
func WatchArtifact(ctx context.Context, dir string, files []string, onChange func(name string, op fsnotify.Op)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}

	watched := make(map[string]bool, len(files))
	for _, f := range files {
		watched[f] = true
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !watched[filepath.Base(event.Name)] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					onChange(event.Name, event.Op)
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}
