package am

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// DefaultReloadDebounce coalesces the burst of events an editor save produces.
const DefaultReloadDebounce = 500 * time.Millisecond

// ownWriteWindow is how long changes after MarkOwnWrite are ignored. A single
// write produces several events (truncate, write).
const ownWriteWindow = time.Second

// ReloadCallback receives the reloaded, validated configuration.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the configuration when any of its files changes.
// Parent directories are watched rather than the files themselves, so files that
// editors replace on save, or that do not exist yet, are still seen.
type ConfigWatcher struct {
	files   map[string]struct{}
	watcher *fsnotify.Watcher

	mu             sync.Mutex
	callbacks      []ReloadCallback
	ownWrites      map[string]time.Time // path -> ignore changes until
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	stopped        bool
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher watches paths. Paths whose directory does not exist are skipped;
// at least one must be watchable.
func NewConfigWatcher(paths ...string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	cw := &ConfigWatcher{
		files:          make(map[string]struct{}, len(paths)),
		watcher:        watcher,
		ownWrites:      make(map[string]time.Time),
		debouncePeriod: DefaultReloadDebounce,
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		p = filepath.Clean(p)
		dir := filepath.Dir(p)
		if _, seen := dirs[dir]; !seen {
			if err := watcher.Add(dir); err != nil {
				logger.Debugw("Not watching config dir", logger.FieldFile, p, logger.FieldError, err)
				continue
			}
			dirs[dir] = struct{}{}
		}
		cw.files[p] = struct{}{}
	}

	if len(cw.files) == 0 {
		watcher.Close()
		return nil, errors.Newf("none of %d config files can be watched", len(paths))
	}
	return cw, nil
}

// ActiveConfigFiles lists the files the current configuration is read from: the
// explicit file when one is set, else every cascade location whose directory exists.
func ActiveConfigFiles() []string {
	mu.Lock()
	explicit := explicitConfigFile
	mu.Unlock()
	if explicit != "" {
		return []string{explicit}
	}

	var files []string
	for _, cf := range configCascade() {
		if info, err := os.Stat(filepath.Dir(cf.path)); err == nil && info.IsDir() {
			files = append(files, cf.path)
		}
	}
	return files
}

// OnReload registers a callback run after every successful reload.
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite makes the watcher ignore the changes the caller is about to make to path.
func (cw *ConfigWatcher) MarkOwnWrite(path string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.ownWrites[filepath.Clean(path)] = time.Now().Add(ownWriteWindow)
}

// Start begins watching.
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handle(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

func (cw *ConfigWatcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, watched := cw.files[path]; !watched {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	if until, own := cw.ownWrites[path]; own {
		if time.Now().Before(until) {
			logger.Debugw("Config watcher ignoring own write", logger.FieldFile, path)
			return
		}
		delete(cw.ownWrites, path)
	}
	if cw.stopped {
		return
	}

	logger.Infow("Config file changed", logger.FieldFile, path, "op", event.Op.String())
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			logger.Errorw("Config reload failed", logger.FieldError, err)
		}
	})
}

// reload re-reads the whole cascade. An invalid configuration is not delivered.
func (cw *ConfigWatcher) reload() error {
	Reset()
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "reloaded config is invalid")
	}

	cw.mu.Lock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	logger.Infow("Config reloaded", "callbacks", len(callbacks))
	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			logger.Warnw("Config reload callback failed", logger.FieldError, err)
		}
	}
	return nil
}

// Stop stops watching. A pending reload is dropped.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	cw.stopped = true
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// SetGlobalWatcher registers the process-wide watcher, so SetValue can mark its
// own writes.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the process-wide watcher, or nil.
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
