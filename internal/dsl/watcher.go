package dsl

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// Watcher hot-reloads compiled engines for a directory of .marcout
// export-definition files, adapted from the teacher's provider-config
// file watcher (cmd/server/main.go's watchAndSyncFile) but generalized
// to a whole directory of definitions instead of one file.
//
// fsnotify drives the fast path: most edits are picked up within the
// debounce window. A robfig/cron fallback rescans the directory on a
// slower cadence to catch changes fsnotify can miss on some network
// filesystems (inotify doesn't always fire reliably over NFS/CIFS
// mounts), so a definition never goes stale for longer than the cron
// period even when the fast path is silently dropped.
type Watcher struct {
	dir      string
	onChange func(collectionCode, source string, engine *Engine)

	mu      sync.Mutex
	mtimes  map[string]time.Time
	cronJob *cron.Cron
}

// NewWatcher builds a watcher over dir, calling onChange whenever a
// *.marcout file is parsed successfully after being created or
// modified. Parse failures are logged and leave the previous engine
// (if any) in place, consistent with §3's "Engine built once, then
// immutable" lifecycle: a bad edit never tears down a working service.
func NewWatcher(dir string, onChange func(collectionCode, source string, engine *Engine)) *Watcher {
	return &Watcher{
		dir:      dir,
		onChange: onChange,
		mtimes:   make(map[string]time.Time),
	}
}

// Start launches the fsnotify watch loop and the fallback cron rescan.
// It returns immediately. Stop halts only the cron rescan; the fsnotify
// watcher is not closed.
func (w *Watcher) Start() error {
	w.rescan() // prime mtimes and compile whatever's already present

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	var debounce *time.Timer
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".marcout") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, w.rescan)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("dsl: watcher error: %v", err)
			}
		}
	}()

	w.cronJob = cron.New()
	if _, err := w.cronJob.AddFunc("@every 5m", w.rescan); err != nil {
		watcher.Close()
		return err
	}
	w.cronJob.Start()

	return nil
}

// Stop halts the fallback cron schedule. The fsnotify watcher and its
// event goroutine are not closed and keep running until the process exits.
func (w *Watcher) Stop() {
	if w.cronJob != nil {
		w.cronJob.Stop()
	}
}

// rescan walks the directory, recompiling any *.marcout file whose
// modification time has advanced since the last scan.
func (w *Watcher) rescan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Printf("dsl: rescan %s: %v", w.dir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".marcout") {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}

		w.mu.Lock()
		last, seen := w.mtimes[path]
		w.mu.Unlock()
		if seen && !info.ModTime().After(last) {
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("dsl: read %s: %v", path, err)
			continue
		}
		engine, err := Parse(string(raw))
		if err != nil {
			log.Printf("dsl: parse %s: %v", path, err)
			continue
		}

		w.mu.Lock()
		w.mtimes[path] = info.ModTime()
		w.mu.Unlock()

		collectionCode := strings.TrimSuffix(entry.Name(), ".marcout")
		if w.onChange != nil {
			w.onChange(collectionCode, string(raw), engine)
		}
	}
}
