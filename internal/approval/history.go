package approval

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/muninn/internal/models"
)

// DefaultHistorySize is used when a non-positive size is configured.
const DefaultHistorySize = 256

// Entry is one executed change.
type Entry struct {
	ID     string              `json:"id"`
	Record models.ChangeRecord `json:"record"`
}

// History keeps the most recent executed changes.
type History struct {
	cache *lru.Cache[string, models.ChangeRecord]
}

// NewHistory returns a History holding at most size entries.
func NewHistory(size int) (*History, error) {
	if size <= 0 {
		size = DefaultHistorySize
	}
	cache, err := lru.New[string, models.ChangeRecord](size)
	if err != nil {
		return nil, fmt.Errorf("approval: history: %w", err)
	}
	return &History{cache: cache}, nil
}

// Add records rec under the approval id.
func (h *History) Add(id string, rec models.ChangeRecord) {
	h.cache.Add(id, rec)
}

// Get returns the change executed for id.
func (h *History) Get(id string) (models.ChangeRecord, bool) {
	return h.cache.Peek(id)
}

// Recent returns all retained entries, newest first.
func (h *History) Recent() []Entry {
	keys := h.cache.Keys()
	out := make([]Entry, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if rec, ok := h.cache.Peek(keys[i]); ok {
			out = append(out, Entry{ID: keys[i], Record: rec})
		}
	}
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return h.cache.Len()
}
