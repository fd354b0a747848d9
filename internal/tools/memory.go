package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/starford/muninn/internal/storage"
)

// DefaultMemoryPath is where saved memories live inside the vault.
const DefaultMemoryPath = ".muninn/memory.md"

const memoryHeader = "# Assistant memory\n\n"

// Memory is an append-only log of notes the assistant was asked to keep.
type Memory struct {
	mu    sync.Mutex
	store storage.Provider
	path  string
	now   func() time.Time
}

// NewMemory returns a Memory stored at path inside the vault.
func NewMemory(store storage.Provider, path string) *Memory {
	if path == "" {
		path = DefaultMemoryPath
	}
	return &Memory{store: store, path: path, now: time.Now}
}

// Path returns the vault path of the memory file.
func (m *Memory) Path() string {
	return m.path
}

// Save appends one entry, optionally under a key.
func (m *Memory) Save(key, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("memory content must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load()
	if err != nil {
		return err
	}
	if current == "" {
		current = memoryHeader
	}
	line := fmt.Sprintf("- %s", m.now().Format("2006-01-02 15:04"))
	if key = strings.TrimSpace(key); key != "" {
		line += fmt.Sprintf(" **%s**", key)
	}
	line += ": " + strings.ReplaceAll(content, "\n", " ") + "\n"
	return m.store.Write(m.path, []byte(current+line))
}

// Load returns the whole memory file, or "" when nothing was saved yet.
func (m *Memory) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Memory) load() (string, error) {
	data, err := m.store.Read(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("memory: read: %w", err)
	}
	return string(data), nil
}
