package chat

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/tools"
)

// MaxActiveFileChars caps the active note text included in the system prompt.
const MaxActiveFileChars = 20000

const basePrompt = `You are an assistant working inside the user's note vault.
Use the tools to read, search and organize notes. Tools that create, modify or
delete files only propose a change; the user approves it before it is applied,
so tell the user what you proposed instead of claiming it is done.
Refer to notes by their vault path. Use [[wikilinks]] when linking notes.`

// ContextBuilder assembles vault context for a turn.
type ContextBuilder struct {
	idx    *index.VaultIndex
	store  storage.Provider
	memory *tools.Memory
	logger *slog.Logger
	now    func() time.Time
}

// NewContextBuilder creates a builder. memory may be nil.
func NewContextBuilder(idx *index.VaultIndex, store storage.Provider, memory *tools.Memory, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextBuilder{
		idx:    idx,
		store:  store,
		memory: memory,
		logger: logger,
		now:    time.Now,
	}
}

// BuildSystemPrompt returns the leading system message of a turn: base
// instructions, the current date, the vault structure, the active note and
// saved memory.
func (b *ContextBuilder) BuildSystemPrompt(activeFile string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\nCurrent date: ")
	sb.WriteString(b.now().Format("Monday, 2006-01-02 15:04 MST"))

	sb.WriteString("\n\n## Vault structure\n")
	sb.WriteString(b.idx.StructureSummary())

	if activeFile != "" {
		if f, ok := b.idx.Get(activeFile); ok {
			sb.WriteString("\n\n## Active file: ")
			sb.WriteString(f.Path)
			if f.Content != nil {
				sb.WriteString("\n")
				sb.WriteString(truncate(*f.Content, MaxActiveFileChars))
			}
		}
	}

	if b.memory != nil {
		mem, err := b.memory.Load()
		if err != nil {
			b.logger.Warn("chat: load memory", slog.String("error", err.Error()))
		} else if s := strings.TrimSpace(mem); s != "" {
			sb.WriteString("\n\n## Memory\n")
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// ResolveMentions reads each mentioned path into an attachment. Text files
// become text attachments, images, audio and PDF become binary ones. Paths
// that cannot be read are skipped.
func (b *ContextBuilder) ResolveMentions(paths []string) []models.Attachment {
	out := make([]models.Attachment, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(path.Clean(strings.TrimSpace(p)), "/")
		if p == "" || p == "." {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		data, err := b.store.Read(p)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, fs.ErrNotExist) {
				level = slog.LevelInfo
			}
			b.logger.Log(context.Background(), level, "chat: mention skipped",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			continue
		}

		a := models.Attachment{Name: path.Base(p), Path: p, MediaType: MediaType(p)}
		switch {
		case a.IsBinary():
			a.Data = data
		case !isText(data):
			b.logger.Info("chat: mention skipped, not text", slog.String("path", p))
			continue
		default:
			a.Text = string(data)
		}
		out = append(out, a)
	}
	return out
}

// isText reports whether data can be inlined into a prompt.
func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

// SuggestMentions completes a partial mention against indexed names and paths.
func (b *ContextBuilder) SuggestMentions(query string) []models.FileInfo {
	hits := b.idx.SearchByNameOrPath(query)
	out := make([]models.FileInfo, len(hits))
	for i, f := range hits {
		out[i] = models.FileInfo{Path: f.Path, Name: f.Name, Extension: f.Extension}
	}
	return out
}

// MediaType guesses the media type of a vault path from its extension.
func MediaType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case "":
		return "text/plain"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	return "text/plain"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "\n[truncated]"
}
