// Package index keeps an in-memory view of every vault file together with the
// tags, links and titles extracted from recognised text files.
//
// The index is owned by a single VaultIndex value. It is mutated only through
// RebuildAll and the OnFile* callbacks; queries return copies.
package index

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
)

// DefaultTextExtensions lists the extensions whose content is read and parsed.
var DefaultTextExtensions = []string{"md", "txt", "json", "yaml", "yml", "xml", "csv"}

// Mirror follows index mutations, e.g. a fulltext store.
type Mirror interface {
	Upsert(f models.IndexedFile) error
	Delete(path string) error
	Reset() error
}

// Option configures a VaultIndex.
type Option func(*VaultIndex)

// WithLogger sets the logger used for skipped files and mirror failures.
func WithLogger(l *slog.Logger) Option {
	return func(x *VaultIndex) {
		x.logger = l
	}
}

// WithTextExtensions overrides the recognised text extensions.
func WithTextExtensions(exts ...string) Option {
	return func(x *VaultIndex) {
		x.textExt = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			x.textExt[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
		}
	}
}

// WithMirror attaches a mirror that receives every upsert and delete.
func WithMirror(m Mirror) Option {
	return func(x *VaultIndex) {
		x.mirror = m
	}
}

// WithClock sets the time source used for rebuild bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(x *VaultIndex) {
		x.now = now
	}
}

// VaultIndex is the in-memory file index.
type VaultIndex struct {
	store   storage.Provider
	logger  *slog.Logger
	textExt map[string]struct{}
	mirror  Mirror
	now     func() time.Time

	rebuilding atomic.Bool

	mu          sync.RWMutex
	entries     map[string]models.IndexedFile
	order       []string
	lastRebuild time.Time
}

// New creates an empty index over store. Call RebuildAll to populate it.
func New(store storage.Provider, opts ...Option) *VaultIndex {
	x := &VaultIndex{
		store:   store,
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]models.IndexedFile),
	}
	WithTextExtensions(DefaultTextExtensions...)(x)
	for _, o := range opts {
		o(x)
	}
	return x
}

// IsText reports whether files with the given path are parsed for content.
func (x *VaultIndex) IsText(path string) bool {
	_, ok := x.textExt[models.ExtensionOf(path)]
	return ok
}

// Status is a point-in-time description of the index.
type Status struct {
	Files       int       `json:"files"`
	Rebuilding  bool      `json:"rebuilding"`
	LastRebuild time.Time `json:"lastRebuild"`
}

// Status returns the current file count and rebuild state.
func (x *VaultIndex) Status() Status {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return Status{
		Files:       len(x.order),
		Rebuilding:  x.rebuilding.Load(),
		LastRebuild: x.lastRebuild,
	}
}

// put stores f, keeping the position of an existing entry.
func (x *VaultIndex) put(f models.IndexedFile) {
	x.mu.Lock()
	if _, ok := x.entries[f.Path]; !ok {
		x.order = append(x.order, f.Path)
	}
	x.entries[f.Path] = f
	x.mu.Unlock()

	if x.mirror != nil {
		if err := x.mirror.Upsert(f); err != nil {
			x.logger.Warn("index: mirror upsert failed",
				slog.String("path", f.Path), slog.String("error", err.Error()))
		}
	}
}

// remove drops the entry at path; it reports whether one existed.
func (x *VaultIndex) remove(path string) bool {
	x.mu.Lock()
	_, ok := x.entries[path]
	if ok {
		delete(x.entries, path)
		if i := slices.Index(x.order, path); i >= 0 {
			x.order = slices.Delete(x.order, i, i+1)
		}
	}
	x.mu.Unlock()

	if ok && x.mirror != nil {
		if err := x.mirror.Delete(path); err != nil {
			x.logger.Warn("index: mirror delete failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}
	return ok
}

func (x *VaultIndex) clear() {
	x.mu.Lock()
	x.entries = make(map[string]models.IndexedFile)
	x.order = nil
	x.mu.Unlock()

	if x.mirror != nil {
		if err := x.mirror.Reset(); err != nil {
			x.logger.Warn("index: mirror reset failed", slog.String("error", err.Error()))
		}
	}
}
