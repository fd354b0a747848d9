// Package changes describes proposed vault mutations and applies them once a
// human has approved them.
package changes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/checksum"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
)

// Change is a proposed mutation. It carries everything needed to perform the
// effect later: the operation kind, target path and old/new content.
// OldChecksum fingerprints the content the proposal was computed against.
type Change struct {
	Kind        models.ChangeKind `json:"kind"`
	Path        string            `json:"path"`
	OldContent  *string           `json:"oldContent,omitempty"`
	NewContent  *string           `json:"newContent,omitempty"`
	OldChecksum string            `json:"oldChecksum,omitempty"`
}

// Create proposes a new file.
func Create(path, content string) Change {
	return Change{Kind: models.ChangeCreate, Path: path, NewContent: &content}
}

// Modify proposes replacing old with content.
func Modify(path, old, content string) Change {
	return Change{
		Kind:        models.ChangeModify,
		Path:        path,
		OldContent:  &old,
		NewContent:  &content,
		OldChecksum: checksum.Of(old),
	}
}

// Delete proposes removing a file whose current content is old.
func Delete(path, old string) Change {
	return Change{
		Kind:        models.ChangeDelete,
		Path:        path,
		OldContent:  &old,
		OldChecksum: checksum.Of(old),
	}
}

// Applier performs approved changes against the FileStore.
type Applier struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewApplier returns an Applier writing through store.
func NewApplier(store storage.Provider, logger *slog.Logger) *Applier {
	return &Applier{store: store, logger: logger, now: time.Now}
}

// Apply performs c. Modify and delete fail with apperr.ErrConflict when the
// file no longer matches OldChecksum; create fails with apperr.ErrAlreadyExists
// when the path is taken.
func (a *Applier) Apply(ctx context.Context, c Change) (models.ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.ChangeRecord{}, err
	}
	if strings.TrimSpace(c.Path) == "" {
		return models.ChangeRecord{}, fmt.Errorf("changes: empty path: %w", apperr.ErrInvalidArgument)
	}

	rec := models.ChangeRecord{Kind: c.Kind, Path: c.Path}

	switch c.Kind {
	case models.ChangeCreate:
		content := deref(c.NewContent)
		if err := a.store.Create(c.Path, []byte(content)); err != nil {
			return models.ChangeRecord{}, fmt.Errorf("changes: create %s: %w", c.Path, err)
		}
		rec.NewContent = &content

	case models.ChangeModify:
		current, err := a.current(c)
		if err != nil {
			return models.ChangeRecord{}, err
		}
		content := deref(c.NewContent)
		if err := a.store.Write(c.Path, []byte(content)); err != nil {
			return models.ChangeRecord{}, fmt.Errorf("changes: write %s: %w", c.Path, err)
		}
		rec.OldContent = &current
		rec.NewContent = &content

	case models.ChangeDelete:
		current, err := a.current(c)
		if err != nil {
			return models.ChangeRecord{}, err
		}
		if err := a.store.Delete(c.Path); err != nil {
			return models.ChangeRecord{}, fmt.Errorf("changes: delete %s: %w", c.Path, err)
		}
		rec.OldContent = &current

	default:
		return models.ChangeRecord{}, fmt.Errorf("changes: unknown kind %q: %w", c.Kind, apperr.ErrInvalidArgument)
	}

	rec.Timestamp = a.now()
	a.logger.Info("changes: applied",
		slog.String("kind", string(c.Kind)),
		slog.String("path", c.Path))
	return rec, nil
}

// current reads the target and checks it against the proposal's checksum.
func (a *Applier) current(c Change) (string, error) {
	data, err := a.store.Read(c.Path)
	if err != nil {
		return "", fmt.Errorf("changes: read %s: %w", c.Path, err)
	}
	if !checksum.Matches(data, c.OldChecksum) {
		return "", fmt.Errorf("changes: %s changed since the proposal: %w", c.Path, apperr.ErrConflict)
	}
	return string(data), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
