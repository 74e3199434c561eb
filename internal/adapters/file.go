package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/vlist/internal/logging"
	"github.com/conneroisu/vlist/internal/types"
)

// FileAdapter serves reads from a JSON dataset file (a top-level array
// of records) and reloads the dataset when the file changes on disk.
// Reloading swaps the backing slice atomically; in-flight reads finish
// against the old data.
type FileAdapter struct {
	*SliceAdapter

	path    string
	watcher *fsnotify.Watcher
	logger  logging.Logger
	done    chan struct{}
}

// NewFileAdapter loads the dataset at path and starts watching it.
func NewFileAdapter(path string, logger logging.Logger) (*FileAdapter, error) {
	items, err := loadDatasetFile(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file adapter: create watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files via
	// rename, which drops a direct file watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("file adapter: watch %s: %w", filepath.Dir(path), err)
	}

	fa := &FileAdapter{
		SliceAdapter: NewSliceAdapter(items),
		path:         path,
		watcher:      watcher,
		logger:       logger.WithComponent("file_adapter"),
		done:         make(chan struct{}),
	}

	go fa.watch()

	return fa, nil
}

// Close stops the file watcher.
func (a *FileAdapter) Close() error {
	close(a.done)

	return a.watcher.Close()
}

// Path returns the dataset file path.
func (a *FileAdapter) Path() string {
	return a.path
}

func (a *FileAdapter) watch() {
	// Debounce window: editors emit bursts of write events per save.
	var pending <-chan time.Time

	for {
		select {
		case <-a.done:
			return
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(a.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(100 * time.Millisecond)
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn(context.Background(), err, "dataset watch error")
		case <-pending:
			pending = nil
			a.reload()
		}
	}
}

func (a *FileAdapter) reload() {
	items, err := loadDatasetFile(a.path)
	if err != nil {
		a.logger.Warn(context.Background(), err, "dataset reload failed, keeping previous data",
			"path", a.path)

		return
	}

	a.SetItems(items)
	a.logger.Info(context.Background(), "dataset reloaded",
		"path", a.path,
		"items", len(items))
}

func loadDatasetFile(path string) ([]types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file adapter: read %s: %w", path, err)
	}

	var items []types.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("file adapter: parse %s: %w", path, err)
	}

	return items, nil
}
