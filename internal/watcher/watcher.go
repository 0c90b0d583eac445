// Package watcher reports when a profile directory gains or loses a
// generation link, so cached generation lists can be refreshed without
// polling. Events are debounced: an activation touches several links
// in quick succession and should produce one refresh, not five.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher emits a refresh signal when generation links change under
// the watched profile directories.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration

	refresh chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New watches the parents of the given profile paths. Directories that
// do not exist are skipped; watching nothing is fine (the watcher just
// never fires).
func New(profilePaths ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	for _, p := range profilePaths {
		dir := filepath.Dir(p)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "watcher: cannot watch %s: %v\n", dir, err)
		}
	}

	return &Watcher{
		fsw:      fsw,
		debounce: defaultDebounce,
		refresh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}, nil
}

// Refresh returns the channel that receives one signal per debounced
// batch of generation-link changes.
func (w *Watcher) Refresh() <-chan struct{} {
	return w.refresh
}

// Start begins delivering refresh signals.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop halts event delivery and releases the filesystem watch.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	return w.fsw.Close()
}

// run collects link events and fires the refresh channel once the
// debounce window closes.
func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !generationLinkEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.refresh <- struct{}{}:
			default:
				// A refresh is already pending; one is enough.
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watcher: %v\n", err)

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// generationLinkEvent reports whether an event concerns a generation
// link (system-14-link, home-manager-3-link) or the profile's current
// symlink itself, and is a structural change rather than a write.
func generationLinkEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	return strings.HasSuffix(base, "-link") || base == "system" || base == "home-manager"
}
