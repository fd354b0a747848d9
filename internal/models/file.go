// Package models defines the domain types shared by the vault index,
// the tool layer, and the chat orchestrator.
package models

import (
	"path"
	"slices"
	"strings"
	"time"
)

// IndexedFile is the derived record kept by the vault index for one file.
type IndexedFile struct {
	Path         string   `json:"path"`
	Name         string   `json:"name"`
	Extension    string   `json:"extension"`
	Title        string   `json:"title,omitempty"`
	Content      *string  `json:"content,omitempty"` // nil for non-text files
	Tags         []string `json:"tags"`
	Links        []string `json:"links"`
	LastModified int64    `json:"lastModified"` // epoch millis
	Size         int64    `json:"size"`
}

// Clone returns a deep copy so callers never share slices with the index.
func (f IndexedFile) Clone() IndexedFile {
	out := f
	if f.Content != nil {
		c := *f.Content
		out.Content = &c
	}
	out.Tags = slices.Clone(f.Tags)
	out.Links = slices.Clone(f.Links)
	return out
}

// HasContent reports whether text content was extracted for the file.
func (f IndexedFile) HasContent() bool {
	return f.Content != nil
}

// Folder returns the vault-relative folder of the file, "" for the root.
func (f IndexedFile) Folder() string {
	return FolderOf(f.Path)
}

// FileInfo describes one enumerated vault file.
type FileInfo struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
}

// NewFileInfo derives name and extension from a vault path.
func NewFileInfo(p string) FileInfo {
	name := path.Base(p)
	return FileInfo{Path: p, Name: name, Extension: ExtensionOf(p)}
}

// FileStat is the storage metadata of a file.
type FileStat struct {
	ModTime time.Time
	Size    int64
}

// ExtensionOf returns the lower-cased extension without the leading dot.
func ExtensionOf(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// FolderOf returns the parent folder of a vault path, "" for root-level files.
func FolderOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// FileEventKind enumerates FileStore change notifications.
type FileEventKind string

const (
	FileCreated  FileEventKind = "create"
	FileModified FileEventKind = "modify"
	FileDeleted  FileEventKind = "delete"
	FileRenamed  FileEventKind = "rename"
)

// FileEvent is a single FileStore change notification.
type FileEvent struct {
	Kind    FileEventKind `json:"kind"`
	Path    string        `json:"path"`
	OldPath string        `json:"oldPath,omitempty"`
}
