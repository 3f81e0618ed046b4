package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, sourceID string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on root and keeps the indices in sync
// with file changes until ctx is cancelled. Source IDs are derived the same
// way as IndexTree, with idPrefix prepended. cb (if non-nil) runs after each
// successful index mutation.
//
// New directories created at runtime are added to the watch list. Rename
// events fire on the old path only, so each one schedules a short
// reconciliation pass that removes index entries whose files are gone and
// indexes files the watcher missed.
func (p *Pipeline) Watch(ctx context.Context, root, idPrefix string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	p.config.Logger.Info("watcher started", zap.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			p.config.Logger.Info("watcher stopped")
			return nil

		case <-reconcileCh:
			p.reconcile(ctx, root, idPrefix, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						p.config.Logger.Warn("watching new dir failed",
							zap.String("path", ev.Name),
							zap.Error(addErr),
						)
					}
					// Index any eligible files already in the new directory.
					p.indexNewDir(ctx, root, idPrefix, ev.Name, cb)
					continue
				}
			}

			if !eligibleExtensions[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}

			sourceID, idErr := p.sourceID(root, idPrefix, ev.Name)
			if idErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := os.ReadFile(ev.Name)
				if readErr != nil {
					p.config.Logger.Warn("watcher read failed",
						zap.String("source_id", sourceID),
						zap.Error(readErr),
					)
					continue
				}
				if _, idxErr := p.IndexSource(ctx, sourceID, string(data)); idxErr != nil {
					p.config.Logger.Warn("watcher index failed",
						zap.String("source_id", sourceID),
						zap.Error(idxErr),
					)
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				if cb != nil {
					cb(kind, sourceID)
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := p.DeleteSource(ctx, sourceID); delErr != nil {
					p.config.Logger.Warn("watcher delete failed",
						zap.String("source_id", sourceID),
						zap.Error(delErr),
					)
					continue
				}
				if cb != nil {
					cb("deleted", sourceID)
				}

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as
				// a separate Create event if it lands in a watched dir.
				if delErr := p.DeleteSource(ctx, sourceID); delErr != nil {
					p.config.Logger.Warn("watcher rename delete failed",
						zap.String("source_id", sourceID),
						zap.Error(delErr),
					)
				} else if cb != nil {
					cb("deleted", sourceID)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.config.Logger.Error("watcher error", zap.Error(watchErr))
		}
	}
}

// reconcile syncs the indices with the tree under root: index entries whose
// files are gone are retracted, and on-disk files the watcher missed are
// indexed.
func (p *Pipeline) reconcile(ctx context.Context, root, idPrefix string, cb EventCallback) {
	indexed, err := p.config.Lexical.Sources()
	if err != nil {
		p.config.Logger.Warn("reconcile source listing failed", zap.Error(err))
		return
	}

	disk := make(map[string]string)
	_ = filepath.WalkDir(root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !eligibleExtensions[strings.ToLower(filepath.Ext(fpath))] {
			return nil
		}
		if sourceID, idErr := p.sourceID(root, idPrefix, fpath); idErr == nil {
			disk[sourceID] = fpath
		}
		return nil
	})

	for sourceID := range indexed {
		if !withinPrefix(sourceID, idPrefix) {
			continue
		}
		if _, ok := disk[sourceID]; ok {
			continue
		}
		if delErr := p.DeleteSource(ctx, sourceID); delErr == nil {
			p.config.Logger.Debug("reconcile removed stale source", zap.String("source_id", sourceID))
			if cb != nil {
				cb("deleted", sourceID)
			}
		}
	}

	for sourceID, fpath := range disk {
		if _, ok := indexed[sourceID]; ok {
			continue
		}
		data, readErr := os.ReadFile(fpath)
		if readErr != nil {
			continue
		}
		if _, idxErr := p.IndexSource(ctx, sourceID, string(data)); idxErr == nil {
			p.config.Logger.Debug("reconcile indexed new source", zap.String("source_id", sourceID))
			if cb != nil {
				cb("created", sourceID)
			}
		}
	}
}

// indexNewDir indexes any eligible files found in a newly created directory.
func (p *Pipeline) indexNewDir(ctx context.Context, root, idPrefix, dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !eligibleExtensions[strings.ToLower(filepath.Ext(fpath))] {
			return nil
		}
		sourceID, idErr := p.sourceID(root, idPrefix, fpath)
		if idErr != nil {
			return nil
		}
		data, readErr := os.ReadFile(fpath)
		if readErr != nil {
			return nil
		}
		if _, idxErr := p.IndexSource(ctx, sourceID, string(data)); idxErr == nil {
			if cb != nil {
				cb("created", sourceID)
			}
		}
		return nil
	})
}

// withinPrefix reports whether sourceID belongs to the tree identified by
// idPrefix. An empty prefix claims IDs without a path separator prefix match
// elsewhere, so it matches everything.
func withinPrefix(sourceID, idPrefix string) bool {
	if idPrefix == "" {
		return true
	}
	return strings.HasPrefix(sourceID, idPrefix+"/")
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(fpath)
		}
		return nil
	})
}
