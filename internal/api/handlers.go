package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/chat"
	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/sse"
	"github.com/starford/muninn/internal/storage"
	"github.com/starford/muninn/internal/tools"
)

// Deps are the components the API serves. Fulltext, Chat, Context, History
// and Events may be nil; the routes that need them are then not mounted or
// degrade as documented on each handler.
type Deps struct {
	Index    *index.VaultIndex
	Store    storage.Provider
	Fulltext tools.Fulltext
	Chat     *chat.Orchestrator
	Context  *chat.ContextBuilder
	Gate     *approval.Gate
	History  *approval.History
	Events   *sse.Broker
	Logger   *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	Deps
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{Deps: d}
}

// wildcardPath extracts the vault path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. Projects%2FPlan.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// SearchFiles handles GET /api/files/search.
//
//	@Summary		Search files by name or path, or by content with mode=content
//	@Tags			files
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			mode	query		string	false	"Search mode"	Enums(name, content)
//	@Param			limit	query		int		false	"Max content results"
//	@Success		200		{object}	FileListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/search [get]
func (h *Handler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}

	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "name":
		writeJSON(w, http.StatusOK, FileListResponse{Files: summarizeAll(h.Index.SearchByNameOrPath(q))})

	case "content":
		if h.Fulltext == nil {
			writeJSON(w, http.StatusBadRequest, errorBody("content search is not enabled"))
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 20
		}
		hits, err := h.Fulltext.Search(q, limit)
		if err != nil {
			writeError(w, h.Logger, "content search", err)
			return
		}
		writeJSON(w, http.StatusOK, ContentSearchResponse{Results: hits})

	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown mode: "+mode))
	}
}

// Structure handles GET /api/files/structure.
//
//	@Summary		Vault structure summary
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	StructureResponse
//	@Security		BearerAuth
//	@Router			/files/structure [get]
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StructureResponse{
		Summary: h.Index.StructureSummary(),
		Folders: h.Index.AllFolderPaths(),
	})
}

// ListFiles handles GET /api/files with optional folder and ext filters.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var files []models.IndexedFile
	if folder := q.Get("folder"); folder != "" {
		files = h.Index.ByFolderPrefix(folder)
	} else {
		files = h.Index.All()
	}
	if ext := q.Get("ext"); ext != "" {
		files = slices.DeleteFunc(files, func(f models.IndexedFile) bool {
			return f.Extension != models.ExtensionOf("."+strings.TrimPrefix(ext, "."))
		})
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: summarizeAll(files)})
}

// GetFile handles GET /api/files/*.
//
//	@Summary		Get one indexed file
//	@Tags			files
//	@Produce		json
//	@Param			path	path		string	true	"Vault path"
//	@Success		200		{object}	fileDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{path} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	f, ok := h.Index.Get(p)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	if f.Links == nil {
		f.Links = []string{}
	}
	detail := fileDetail{IndexedFile: f, Backlinks: []string{}}
	if h.Fulltext != nil {
		bl, err := h.Fulltext.Backlinks(p)
		if err != nil {
			h.Logger.Warn("api: backlinks failed", slog.String("path", p), slog.String("error", err.Error()))
		} else if bl != nil {
			detail.Backlinks = bl
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Folders handles GET /api/folders.
//
//	@Summary		Every folder path in the vault, sorted
//	@Tags			files
//	@Produce		json
//	@Success		200	{array}	string
//	@Security		BearerAuth
//	@Router			/folders [get]
func (h *Handler) Folders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"folders": h.Index.AllFolderPaths()})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.Index.Tags()})
}

// FilesByTag handles GET /api/tags/{tag}.
//
//	@Summary		Files carrying a tag
//	@Tags			files
//	@Produce		json
//	@Param			tag	path		string	true	"Tag with or without the leading #"
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag} [get]
func (h *Handler) FilesByTag(w http.ResponseWriter, r *http.Request) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: summarizeAll(h.Index.ByTag(tag))})
}

// Rebuild handles POST /api/index/rebuild.
//
//	@Summary		Rebuild the vault index
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	RebuildResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	// A rebuild clears the index first; finish it even if the client goes away.
	n, err := h.Index.RebuildAll(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, h.Logger, "rebuild", err)
		return
	}
	if h.Events != nil {
		h.Events.Publish(sse.Event{Type: sse.TypeIndexUpdated, Data: h.Index.Status()})
	}
	writeJSON(w, http.StatusOK, RebuildResponse{Indexed: n})
}

// IndexStatus handles GET /api/index/status.
func (h *Handler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Index.Status())
}
