package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
)

// renameWindow is how long a Rename on the old path waits for the Create on
// the new path before it is treated as a delete.
const renameWindow = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(ev models.FileEvent)

// Watch starts an fsnotify watcher on the vault root and applies file change
// events to idx until ctx is cancelled. It calls cb (if non-nil) after each
// applied event.
//
// New directories created at runtime are added to the watch list and their
// files indexed. fsnotify reports a rename as Rename(old) followed by
// Create(new); the pair is applied as a single rename event. A Rename with no
// matching Create inside renameWindow (moved out of the vault) is a delete.
func Watch(ctx context.Context, idx *VaultIndex, store *storage.FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, store, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	emit := func(ev models.FileEvent) {
		idx.Apply(ev)
		logger.Debug("watcher: applied", slog.String("kind", string(ev.Kind)), slog.String("path", ev.Path))
		if cb != nil {
			cb(ev)
		}
	}

	// removed drops a path that may be a file or a whole folder.
	removed := func(rel string) {
		if _, ok := idx.Get(rel); ok {
			emit(models.FileEvent{Kind: models.FileDeleted, Path: rel})
			return
		}
		for _, f := range idx.ByFolderPrefix(rel + "/") {
			emit(models.FileEvent{Kind: models.FileDeleted, Path: f.Path})
		}
	}

	var (
		pendingOld  string
		renameTimer *time.Timer
		renameCh    <-chan time.Time
	)
	flushRename := func() {
		if pendingOld == "" {
			return
		}
		old := pendingOld
		pendingOld = ""
		removed(old)
	}
	startRename := func(rel string) {
		flushRename()
		pendingOld = rel
		if renameTimer == nil {
			renameTimer = time.NewTimer(renameWindow)
			renameCh = renameTimer.C
		} else {
			renameTimer.Reset(renameWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if renameTimer != nil {
				renameTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-renameCh:
			flushRename()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := store.Rel(ev.Name)
			if relErr != nil || rel == "." || store.Ignored(rel) || storage.IsTempFile(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					flushRename()
					if addErr := addDirsRecursive(w, store, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					indexNewDir(store, ev.Name, emit)
					continue
				}
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				if pendingOld != "" {
					old := pendingOld
					pendingOld = ""
					emit(models.FileEvent{Kind: models.FileRenamed, Path: rel, OldPath: old})
					continue
				}
				emit(models.FileEvent{Kind: models.FileCreated, Path: rel})

			case ev.Op&fsnotify.Write != 0:
				emit(models.FileEvent{Kind: models.FileModified, Path: rel})

			case ev.Op&fsnotify.Remove != 0:
				removed(rel)

			case ev.Op&fsnotify.Rename != 0:
				startRename(rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexNewDir reports every file already present in a newly created directory.
func indexNewDir(store *storage.FS, dirPath string, emit func(models.FileEvent)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := store.Rel(path)
		if relErr != nil || store.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || storage.IsTempFile(rel) {
			return nil
		}
		emit(models.FileEvent{Kind: models.FileCreated, Path: rel})
		return nil
	})
}

// addDirsRecursive adds root and all its non-ignored subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, store *storage.FS, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := store.Rel(path); relErr == nil && rel != "." && store.Ignored(rel) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
