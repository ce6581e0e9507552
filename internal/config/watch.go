package config

import (
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchAgents watches the agents.yaml override file and invokes onChange
// with the freshly loaded agent set whenever it is written. The returned
// stop function releases the watcher.
//
// Used by interactive mode so agent definitions can be tuned without
// restarting a long-lived session.
func WatchAgents(onChange func()) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save,
	// which drops a direct file watch.
	dir := filepath.Dir(AgentsFilePath())
	target := filepath.Base(AgentsFilePath())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Printf("[config] agents file changed (%s), reloading", event.Op)
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[config] watcher error: %v", err)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
