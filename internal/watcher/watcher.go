// Package watcher turns filesystem changes under a project into debounced
// batches and dispatches them to rebuild groups.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/sitebuild/internal/logging"
)

// FileWatcher watches a project tree and delivers debounced change batches
// to its handlers.
type FileWatcher struct {
	root      string
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string // absolute filesystem path
	Rel     string // slash-separated path relative to the project root
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a root-relative slash path is of interest.
// Directories are passed with a trailing slash; a directory is only watched
// when every filter keeps it.
type FileFilter func(rel string) bool

// ChangeHandler handles one debounced batch.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer that emits a batch once no event has
// arrived for delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 256),
		output:  make(chan []ChangeEvent, 16),
		pending: make([]ChangeEvent, 0),
	}
}

// NewFileWatcher creates a watcher rooted at the absolute project root.
func NewFileWatcher(root string, debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		root:      filepath.Clean(root),
		watcher:   w,
		debouncer: NewDebouncer(debounceDelay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter. An event must pass every filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath watches a single directory, given relative to the root.
func (fw *FileWatcher) AddPath(rel string) error {
	dir, err := fw.resolve(rel)
	if err != nil {
		return err
	}
	return fw.watcher.Add(dir)
}

// AddRecursive watches a directory, given relative to the root, and all
// its subdirectories. A missing directory is not an error.
func (fw *FileWatcher) AddRecursive(rel string) error {
	dir, err := fw.resolve(rel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return fw.addTree(dir)
}

func (fw *FileWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (strings.HasPrefix(d.Name(), ".") || !fw.keepDir(path)) {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

// keepDir runs the filters over the directory at path.
func (fw *FileWatcher) keepDir(path string) bool {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return fw.keep(filepath.ToSlash(rel) + "/")
}

func (fw *FileWatcher) keep(rel string) bool {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(rel) {
			return false
		}
	}
	return true
}

// resolve turns a root-relative path into an absolute one that stays
// inside the root.
func (fw *FileWatcher) resolve(rel string) (string, error) {
	abs := filepath.Join(fw.root, filepath.FromSlash(rel))
	if abs != fw.root && !strings.HasPrefix(abs, fw.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", rel, fw.root)
	}
	return abs, nil
}

// Start starts the file watcher. It runs until ctx is canceled.
func (fw *FileWatcher) Start(ctx context.Context) error {
	go fw.debouncer.start(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stop()
	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	rel, err := filepath.Rel(fw.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	info, statErr := os.Stat(event.Name)

	// New directories are watched so files created inside them are seen.
	if statErr == nil && info.IsDir() {
		if event.Op&fsnotify.Create == fsnotify.Create && fw.keepDir(event.Name) {
			if err := fw.addTree(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", rel)
			}
		}
		return
	}

	if !fw.keep(rel) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	changeEvent := ChangeEvent{Type: eventType, Path: event.Name, Rel: rel}
	if statErr == nil {
		changeEvent.ModTime = info.ModTime()
		changeEvent.Size = info.Size()
	}

	select {
	case fw.debouncer.events <- changeEvent:
	default:
		fw.logger.Warn(ctx, nil, "Dropping change event, debouncer is full", "path", rel)
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			fw.logger.Debug(ctx, "Change batch", "files", len(events))
			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					fw.logger.Debug(ctx, "Change handler reported errors", "error", err.Error())
				}
			}
		}
	}
}

// Events returns the debounced batches. Useful when driving a Debouncer
// directly.
func (d *Debouncer) Events() <-chan []ChangeEvent {
	return d.output
}

// Add feeds one event into the debouncer.
func (d *Debouncer) Add(event ChangeEvent) {
	d.addEvent(event)
}

func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Last event per path wins.
	eventMap := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		eventMap[event.Rel] = event
	}

	events := make([]ChangeEvent, 0, len(eventMap))
	for _, event := range eventMap {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Rel < events[j].Rel })

	select {
	case d.output <- events:
	default:
		// Consumer is behind; the batch is dropped.
	}

	d.pending = d.pending[:0]
}

// NoHiddenFilter drops dotfiles and anything inside dot directories.
func NoHiddenFilter(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

// NoEditorTempFilter drops editor swap and backup files.
func NoEditorTempFilter(rel string) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	return !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp") &&
		!strings.HasSuffix(base, ".tmp") &&
		!strings.HasPrefix(base, "#")
}

// UnderFilter keeps paths inside one of dirs or equal to one of files.
// Directories that lead to one of dirs are kept too.
func UnderFilter(dirs []string, files []string) FileFilter {
	return func(rel string) bool {
		for _, f := range files {
			if rel == f {
				return true
			}
		}
		for _, d := range dirs {
			prefix := strings.TrimSuffix(d, "/") + "/"
			if d == "." || strings.HasPrefix(rel, prefix) {
				return true
			}
			if strings.HasSuffix(rel, "/") && strings.HasPrefix(prefix, rel) {
				return true
			}
		}
		return false
	}
}

// ExcludeFilter drops paths inside any of dirs.
func ExcludeFilter(dirs ...string) FileFilter {
	return func(rel string) bool {
		for _, d := range dirs {
			if strings.HasPrefix(rel, strings.TrimSuffix(d, "/")+"/") {
				return false
			}
		}
		return true
	}
}
