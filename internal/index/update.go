package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/parser"
)

// RebuildAll clears the index and indexes every enumerated file in order.
// A rebuild started while another one runs returns apperr.ErrRebuildInProgress.
// Files that fail to index are logged and skipped. It returns the number of
// files indexed.
//
// Incremental callbacks are not blocked during a rebuild. Because the index is
// cleared first, an event landing mid-rebuild can be lost until the next event
// for that path.
func (x *VaultIndex) RebuildAll(ctx context.Context) (int, error) {
	if !x.rebuilding.CompareAndSwap(false, true) {
		return 0, apperr.ErrRebuildInProgress
	}
	defer x.rebuilding.Store(false)

	x.clear()

	files, err := x.store.List()
	if err != nil {
		return 0, err
	}

	n := 0
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if x.index(fi.Path) {
			n++
		}
	}

	x.mu.Lock()
	x.lastRebuild = x.now()
	x.mu.Unlock()

	x.logger.Info("index: rebuilt", slog.Int("files", n), slog.Int("enumerated", len(files)))
	return n, nil
}

// OnFileCreated indexes a newly created file.
func (x *VaultIndex) OnFileCreated(path string) {
	x.index(path)
}

// OnFileModified re-indexes a modified file, replacing any prior entry.
func (x *VaultIndex) OnFileModified(path string) {
	x.index(path)
}

// OnFileDeleted removes the entry for path. Missing entries are ignored.
func (x *VaultIndex) OnFileDeleted(path string) {
	x.remove(path)
}

// OnFileRenamed drops oldPath and indexes newPath from its current content.
func (x *VaultIndex) OnFileRenamed(newPath, oldPath string) {
	x.remove(oldPath)
	x.index(newPath)
}

// OnFolderDeleted removes every entry below the folder prefix.
func (x *VaultIndex) OnFolderDeleted(folder string) int {
	prefix := strings.TrimSuffix(folder, "/") + "/"
	n := 0
	for _, f := range x.ByFolderPrefix(prefix) {
		if x.remove(f.Path) {
			n++
		}
	}
	return n
}

// Apply dispatches a FileStore event to the matching callback.
func (x *VaultIndex) Apply(ev models.FileEvent) {
	switch ev.Kind {
	case models.FileCreated:
		x.OnFileCreated(ev.Path)
	case models.FileModified:
		x.OnFileModified(ev.Path)
	case models.FileDeleted:
		x.OnFileDeleted(ev.Path)
	case models.FileRenamed:
		x.OnFileRenamed(ev.Path, ev.OldPath)
	default:
		x.logger.Warn("index: unknown event", slog.String("kind", string(ev.Kind)), slog.String("path", ev.Path))
	}
}

// index (re)indexes one file. It reports whether an entry was stored.
func (x *VaultIndex) index(p string) bool {
	f, err := x.build(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			x.remove(p)
		}
		x.logger.Warn("index: skipped file", slog.String("path", p), slog.String("error", err.Error()))
		return false
	}
	x.put(f)
	return true
}

func (x *VaultIndex) build(p string) (models.IndexedFile, error) {
	st, err := x.store.Stat(p)
	if err != nil {
		return models.IndexedFile{}, err
	}
	info := models.NewFileInfo(p)
	f := models.IndexedFile{
		Path:         p,
		Name:         info.Name,
		Extension:    info.Extension,
		Tags:         []string{},
		Links:        []string{},
		LastModified: st.ModTime.UnixMilli(),
		Size:         st.Size,
	}
	if !x.IsText(p) {
		return f, nil
	}

	data, err := x.store.Read(p)
	if err != nil {
		return models.IndexedFile{}, err
	}
	res := parser.Parse(data)
	content := string(data)
	f.Content = &content
	f.Tags = res.Tags
	f.Links = res.Links
	f.Title = res.Title
	if f.Title == "" {
		f.Title = strings.TrimSuffix(info.Name, path.Ext(info.Name))
	}
	return f, nil
}
