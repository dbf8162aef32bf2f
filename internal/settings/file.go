package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize settings watcher")

// FileStore persists settings as a YAML file.
//
// Start watches the file's directory so that edits made by other processes
// (or by hand) are picked up and published to subscribers.
type FileStore struct {
	path   string
	logger *zap.Logger

	// writeMu serializes read-modify-write-publish so subscribers see
	// changes in commit order. Callbacks must not write to the store.
	writeMu sync.Mutex
	mu      sync.RWMutex
	cur     Settings
	hub     hub

	watchMu sync.Mutex
	stop    chan struct{}
	done    chan struct{}
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) FileOption {
	return func(f *FileStore) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFileStore opens the settings file at path. A missing file yields the
// defaults; it is created on the first Save.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	f := &FileStore{
		path:   filepath.Clean(path),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	s, err := readFile(f.path)
	if err != nil {
		return nil, err
	}
	f.cur = s
	return f, nil
}

// Path returns the settings file path.
func (f *FileStore) Path() string {
	return f.path
}

// readFile decodes path over the defaults so that absent keys keep their
// default values.
func readFile(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Get returns the current settings.
func (f *FileStore) Get(context.Context) (Settings, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cur.Clone(), nil
}

// Save validates s, writes it atomically and notifies subscribers.
func (f *FileStore) Save(_ context.Context, s Settings) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return f.save(s)
}

func (f *FileStore) save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.swap(s)
	return nil
}

// SetLocales replaces the enabled locale set and persists it.
func (f *FileStore) SetLocales(ctx context.Context, ids []string) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	s, _ := f.Get(ctx)
	s.EnabledLocales = slices.Clone(ids)
	return f.save(s)
}

// EnabledLocales returns the enabled locale ids.
func (f *FileStore) EnabledLocales(ctx context.Context) ([]string, error) {
	s, err := f.Get(ctx)
	return s.EnabledLocales, err
}

// WatchLocales calls fn after every change of the enabled locale set, whether
// made through Save or by editing the file while the watcher runs.
func (f *FileStore) WatchLocales(ctx context.Context, fn func([]string)) error {
	f.hub.add(subscription{ctx: ctx, onLocales: fn})
	return nil
}

// Watch calls fn after every change.
func (f *FileStore) Watch(ctx context.Context, fn func(Settings)) error {
	f.hub.add(subscription{ctx: ctx, onChange: fn})
	return nil
}

// swap installs s and publishes it if it differs from the current settings.
// Callers hold writeMu.
func (f *FileStore) swap(s Settings) {
	f.mu.Lock()
	old := f.cur
	if old.Equal(s) {
		f.mu.Unlock()
		return
	}
	f.cur = s.Clone()
	f.mu.Unlock()

	f.hub.publish(old, s)
}

// Start begins watching the settings file. It returns immediately; events are
// processed in a background goroutine until Stop is called or ctx is done.
func (f *FileStore) Start(ctx context.Context) error {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	if f.stop != nil {
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	// The directory is watched because atomic writes replace the file.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go f.processEvents(ctx, watcher, f.stop, f.done)

	f.logger.Debug("watching settings file", zap.String("path", f.path))
	return nil
}

// Stop stops the watcher and waits for it to exit. It is safe to call more
// than once.
func (f *FileStore) Stop() {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	if f.stop == nil {
		return
	}
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	<-f.done
	f.stop, f.done = nil, nil
}

func (f *FileStore) processEvents(ctx context.Context, w *fsnotify.Watcher, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				f.reload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file. Invalid content is logged and ignored so that a
// half-edited file never replaces good settings.
func (f *FileStore) reload() {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	s, err := readFile(f.path)
	if err != nil {
		f.logger.Warn("ignoring settings file change", zap.String("path", f.path), zap.Error(err))
		return
	}
	f.swap(s)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
