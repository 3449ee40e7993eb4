package rscript

import (
	"github.com/fsnotify/fsnotify"
)

// DirectoryEvent reports a script file appearing, changing, or
// disappearing from a watched directory.
type DirectoryEvent struct {
	Path string
	Op   fsnotify.Op
}

// WatchDirectory watches dir for filesystem changes and delivers each
// one on the returned channel, so a host can re-run AddScriptsByPath
// to pick up a replaced OneShot executable. It does not itself mutate
// the manager's registry: re-discovery, and any decision about what to
// do with endpoints discovered a second time, stays the host's
// responsibility.
//
// The returned stop function closes the underlying watcher; callers
// must call it to release the watch.
func WatchDirectory(dir string) (events <-chan DirectoryEvent, stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, newIOError("watch", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, nil, newIOError("watch", err)
	}

	out := make(chan DirectoryEvent)
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				out <- DirectoryEvent{Path: ev.Name, Op: ev.Op}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, watcher.Close, nil
}
