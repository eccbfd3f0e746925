package browse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Directory holds the static registry directory listing and reloads it
// when the file changes on disk.
type Directory struct {
	path   string
	logger *zap.Logger

	mu   sync.RWMutex
	data json.RawMessage
}

// OpenDirectory reads the listing at path. A nil logger discards output.
func OpenDirectory(path string, logger *zap.Logger) (*Directory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{path: filepath.Clean(path), logger: logger}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Listing returns the current listing.
func (d *Directory) Listing() json.RawMessage {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.data
}

// Reload re-reads the file. The previous listing is kept on error.
func (d *Directory) Reload() error {
	data, err := LoadDirectory(d.path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.data = data
	d.mu.Unlock()
	return nil
}

// Watch reloads the listing whenever the file is written or replaced, until
// ctx is done. The parent directory is watched so editors that save by
// rename are seen too.
func (d *Directory) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating directory watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("watching %s: %w", d.path, err)
	}
	d.logger.Debug("watching directory listing", zap.String("path", d.path))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != d.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := d.Reload(); err != nil {
				// Half-written files show up as invalid JSON; the next
				// write event fixes them.
				if !errors.Is(err, os.ErrNotExist) {
					d.logger.Warn("reloading directory listing failed",
						zap.String("path", d.path),
						zap.Error(err))
				}
				continue
			}
			d.logger.Info("directory listing reloaded", zap.String("path", d.path))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("directory watcher error", zap.Error(err))
		}
	}
}
