package stage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/assetstage/asset"
	"github.com/teranos/assetstage/engine"
	"github.com/teranos/assetstage/errors"
	"github.com/teranos/assetstage/logger"
)

// DefaultDebounce is how long the source watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// PublishCallback is called after every republish triggered by the watcher.
type PublishCallback func(id asset.ID, res engine.Result, err error)

// SourceWatcher republishes assets when their source files change.
// An id with its own subdirectory under the source dir is published from it;
// other ids share the source dir itself.
type SourceWatcher struct {
	publisher *Publisher
	sourceDir string
	opts      PublishOptions
	sources   map[asset.ID]string
	ids       []asset.ID
	watcher   *fsnotify.Watcher
	logger    *zap.SugaredLogger

	debouncePeriod time.Duration

	mu            sync.Mutex
	pending       map[asset.ID]struct{}
	debounceTimer *time.Timer
	callbacks     []PublishCallback
	stopped       bool

	flushMu sync.Mutex
}

// WatchOption configures a SourceWatcher.
type WatchOption func(*SourceWatcher)

// WithDebounce sets the debounce period. Non-positive values are ignored.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *SourceWatcher) {
		if d > 0 {
			w.debouncePeriod = d
		}
	}
}

// NewSourceWatcher watches sourceDir, and the subdirectory of every id that has one,
// for changes to the assets in ids.
func NewSourceWatcher(p *Publisher, sourceDir string, ids []asset.ID, opts PublishOptions, wopts ...WatchOption) (*SourceWatcher, error) {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return nil, err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := watcher.Add(sourceDir); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch source dir %s", sourceDir)
	}

	w := &SourceWatcher{
		publisher:      p,
		sourceDir:      sourceDir,
		opts:           opts,
		sources:        make(map[asset.ID]string, len(ids)),
		ids:            ids,
		watcher:        watcher,
		logger:         p.logger.Named("watch"),
		debouncePeriod: DefaultDebounce,
		pending:        make(map[asset.ID]struct{}),
	}
	for _, opt := range wopts {
		opt(w)
	}

	for _, id := range ids {
		w.sources[id] = sourceDir
		sub := filepath.Join(sourceDir, string(id))
		if info, err := os.Stat(sub); err == nil && info.IsDir() {
			if err := watcher.Add(sub); err != nil {
				watcher.Close()
				return nil, errors.Wrapf(err, "failed to watch asset dir %s", sub)
			}
			w.sources[id] = sub
		}
	}

	return w, nil
}

// Source is the directory id is republished from.
func (w *SourceWatcher) Source(id asset.ID) string {
	return w.sources[id]
}

// SetOptions changes the options used by later republishes.
func (w *SourceWatcher) SetOptions(opts PublishOptions) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opts = opts
}

// OnPublish registers a callback run after each republish.
func (w *SourceWatcher) OnPublish(callback PublishCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for source changes.
func (w *SourceWatcher) Start() {
	go w.watchLoop()
}

func (w *SourceWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			affected := w.affected(event.Name)
			if len(affected) == 0 {
				continue
			}
			w.logger.Debugw("Source change detected",
				logger.FieldFile, event.Name,
				"op", event.Op.String(),
				logger.FieldCount, len(affected))
			w.schedule(affected)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Source watcher error", logger.FieldError, err)
		}
	}
}

// affected maps a changed path to the ids whose published form depends on it.
// A record file in the shared source dir affects only its own id.
func (w *SourceWatcher) affected(path string) []asset.ID {
	dir, base := filepath.Dir(path), filepath.Base(path)

	var shared []asset.ID
	for _, id := range w.ids {
		src := w.sources[id]
		if src != w.sourceDir {
			if dir == src {
				return []asset.ID{id}
			}
			continue
		}
		if dir != w.sourceDir {
			continue
		}
		if isRecordFile(base, id) {
			return []asset.ID{id}
		}
		shared = append(shared, id)
	}
	return shared
}

func isRecordFile(name string, id asset.ID) bool {
	for _, enc := range asset.Encodings {
		if name == enc.Filename(id) {
			return true
		}
	}
	return false
}

// schedule debounces rapid changes into one republish per id.
func (w *SourceWatcher) schedule(ids []asset.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	for _, id := range ids {
		w.pending[id] = struct{}{}
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.flush)
}

// flush republishes every pending id, in the order ids were given. A timer that
// fired just before Stop publishes nothing.
func (w *SourceWatcher) flush() {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	pending := w.pending
	w.pending = make(map[asset.ID]struct{})
	callbacks := make([]PublishCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	opts := w.opts
	w.mu.Unlock()

	for _, id := range w.ids {
		if _, ok := pending[id]; !ok {
			continue
		}
		res, err := w.publisher.Publish(context.Background(), id, w.sources[id], opts)
		if err != nil {
			w.logger.Errorw("Republish failed", logger.FieldAssetID, string(id), logger.FieldError, err)
		} else {
			w.logger.Infow("Republished asset", logger.FieldAssetID, string(id), "success", res.Success)
		}
		for _, callback := range callbacks {
			callback(id, res, err)
		}
	}
}

// Stop stops watching. A republish already running finishes first.
func (w *SourceWatcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()

	w.flushMu.Lock()
	defer w.flushMu.Unlock()
	return err
}
