package load

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-parses path whenever it is written and invokes fn with the
// fresh document. Parse failures are reported through errFn, which may
// be nil. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file itself so that
// editors replacing the file atomically (write to temp, rename over)
// do not silently drop the watch.
func Watch(ctx context.Context, path string, fn func(*File), errFn func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	report := func(err error) {
		if errFn != nil {
			errFn(err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			f, err := ParseFile(abs)
			if err != nil {
				report(err)
				continue
			}
			fn(f)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			report(err)
		}
	}
}
