package resource

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Watcher invalidates Cache entries of local files when they change on disk.
// Directories of watched files are registered with fsnotify; events for other files in
// those directories are ignored.
type Watcher struct {
	cache  *Cache
	logger *zap.Logger

	mu       sync.RWMutex
	files    map[string]bool
	dirs     map[string]int
	isClosed bool

	fsnotify *fsnotify.Watcher
	changes  chan string
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher creates a Watcher invalidating entries of cache. The logger may be nil.
//
// Parameters:
//   - cache: the cache to invalidate, may be nil to only report changes
//   - logger: the logger for watch errors
//
// Returns:
//   - *Watcher: the running watcher
//   - error: error if the fsnotify watcher could not be created
func NewWatcher(cache *Cache, logger *zap.Logger) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		cache:    cache,
		logger:   logger,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		fsnotify: fsWatch,
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Add starts watching the file at path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isClosed {
		return errors.New("watcher already closed")
	}
	if w.files[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsnotify.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Remove stops watching the file at path.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", path)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[abs] {
		return nil
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if !w.isClosed {
			return w.fsnotify.Remove(dir)
		}
	}
	return nil
}

// Changes returns a channel receiving the absolute path of every changed watched file.
// Events are dropped when the channel is full.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher and closes the Changes channel.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return nil
	}
	w.isClosed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return nil
}

func (w *Watcher) start() {
	defer w.wg.Done()
	defer close(w.changes)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handleFileEvent(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) handleFileEvent(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.RLock()
	tracked := w.files[abs]
	w.mu.RUnlock()
	if !tracked {
		return
	}

	if w.cache != nil && w.cache.Invalidate(abs) {
		w.logger.Debug("cache entry invalidated", zap.String("path", abs))
	}

	select {
	case w.changes <- abs:
	default:
		w.logger.Debug("change dropped", zap.String("path", abs))
	}
}
