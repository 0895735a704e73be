package directory

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "indexed", "removed".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the records directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil)
// after each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, root, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories join the watch list.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Index any record files already in the new directory.
					indexNewDir(db, root, absPath, logger, cb)
					continue
				}
			}

			// Only record files matter from here on.
			if !isRecordFile(absPath) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := syncFile(db, root, rel); err != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel))
				if cb != nil {
					cb("indexed", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if err := db.DeleteSource(rel); err != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", rel))
				if cb != nil {
					cb("removed", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new path
				// arrives as a separate Create event (if it stays within a
				// watched dir). Delete the old entry immediately and
				// schedule a short reconciliation pass for stragglers.
				if err := db.DeleteSource(rel); err != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
				} else {
					logger.Debug("watcher: rename old removed", slog.String("path", rel))
					if cb != nil {
						cb("removed", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile does a lightweight sync using batch lookups: index entries
// without a file on disk are removed, and on-disk files that are missing
// or changed are re-indexed.
func reconcile(db *DB, root string, logger *slog.Logger, cb EventCallback) {
	indexed, err := db.AllSources()
	if err != nil {
		logger.Warn("reconcile: all sources failed", slog.String("error", err.Error()))
		return
	}
	disk, err := listRecordFiles(root)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	for rel := range indexed {
		if _, ok := disk[rel]; !ok {
			if delErr := db.DeleteSource(rel); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", rel))
				if cb != nil {
					cb("removed", rel)
				}
			}
		}
	}

	for rel, chk := range disk {
		if indexed[rel] == chk {
			continue
		}
		if err := syncFile(db, root, rel); err == nil {
			logger.Debug("reconcile: indexed", slog.String("path", rel))
			if cb != nil {
				cb("indexed", rel)
			}
		}
	}
}

// indexNewDir indexes any record files found in a newly created directory.
func indexNewDir(db *DB, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isRecordFile(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if idxErr := syncFile(db, root, rel); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("indexed", rel)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
