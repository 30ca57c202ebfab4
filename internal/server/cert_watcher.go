package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"careerpath/internal/errors"
)

// CertWatcher watches certificate files and calls onChange, debounced, once
// any of them has a newer modification time.
type CertWatcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	done    chan struct{}
	fire    chan struct{}
	running bool

	onChange func()
	logger   *errors.Logger
}

// NewCertWatcher creates a watcher for the non-empty paths in files
func NewCertWatcher(files []string, debounceDelay time.Duration, onChange func(), logger *errors.Logger) *CertWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.NopLogger()
	}

	watched := make([]string, 0, len(files))
	for _, f := range files {
		if f != "" {
			watched = append(watched, f)
		}
	}

	return &CertWatcher{
		files:         watched,
		lastModTime:   make(map[string]time.Time),
		debounceDelay: debounceDelay,
		done:          make(chan struct{}),
		fire:          make(chan struct{}, 1),
		onChange:      onChange,
		logger:        logger,
	}
}

// Start begins watching. Parent directories are watched as well so atomic
// replace-by-rename is seen.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, file := range cw.files {
		if stat, err := os.Stat(file); err == nil {
			cw.lastModTime[file] = stat.ModTime()
		}
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cw.fsWatcher = watcher
	cw.running = true
	go cw.loop(watcher)

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce_delay", cw.debounceDelay)
	return nil
}

// Stop stops the watcher. Calling Stop on a stopped watcher is a no-op.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}

	close(cw.done)
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.running = false

	if err := cw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}

	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

func (cw *CertWatcher) loop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if cw.isRelevant(event) {
				cw.scheduleReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "File watcher error")

		case <-cw.fire:
			if cw.anyChanged() {
				cw.logger.Info("Certificate files changed, triggering reload")
				cw.onChange()
			}

		case <-cw.done:
			return
		}
	}
}

func (cw *CertWatcher) isRelevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(cw.files, func(f string) bool {
		return filepath.Clean(f) == name
	})
}

// anyChanged updates the stored modification times and reports whether any
// file is newer than before
func (cw *CertWatcher) anyChanged() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	changed := false
	for _, file := range cw.files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		if last, ok := cw.lastModTime[file]; !ok || stat.ModTime().After(last) {
			cw.lastModTime[file] = stat.ModTime()
			changed = true
		}
	}
	return changed
}

func (cw *CertWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debounceDelay, func() {
		select {
		case cw.fire <- struct{}{}:
		default:
		}
	})
}

func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// WatchedFiles returns the watched certificate paths
func (cw *CertWatcher) WatchedFiles() []string {
	return slices.Clone(cw.files)
}
