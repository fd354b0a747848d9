package api

import (
	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/fulltext"
	"github.com/starford/muninn/internal/models"
)

// ChatRequest is the request body of POST /api/chat.
type ChatRequest struct {
	Messages   []models.Message `json:"messages" validate:"required"`
	ActiveFile string           `json:"activeFile,omitempty" example:"Projects/Plan.md"`
	// Mentions are vault paths attached to the last user message.
	Mentions []string `json:"mentions,omitempty" example:"Projects/Roadmap.md"`
}

// FileSummary is an indexed file without its content.
type FileSummary struct {
	Path         string   `json:"path" example:"Projects/Plan.md" validate:"required"`
	Name         string   `json:"name" example:"Plan.md" validate:"required"`
	Extension    string   `json:"extension" example:"md"`
	Title        string   `json:"title,omitempty" example:"Plan"`
	Tags         []string `json:"tags"`
	LastModified int64    `json:"lastModified"`
	Size         int64    `json:"size"`
}

func summarize(f models.IndexedFile) FileSummary {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FileSummary{
		Path:         f.Path,
		Name:         f.Name,
		Extension:    f.Extension,
		Title:        f.Title,
		Tags:         tags,
		LastModified: f.LastModified,
		Size:         f.Size,
	}
}

func summarizeAll(files []models.IndexedFile) []FileSummary {
	out := make([]FileSummary, len(files))
	for i, f := range files {
		out[i] = summarize(f)
	}
	return out
}

// fileDetail is an indexed file with the files linking to it.
type fileDetail struct {
	models.IndexedFile
	Backlinks []string `json:"backlinks"`
}

// FileListResponse wraps index query results.
type FileListResponse struct {
	Files []FileSummary `json:"files" validate:"required"`
}

// ContentSearchResponse wraps fulltext hits.
type ContentSearchResponse struct {
	Results []fulltext.Hit `json:"results" validate:"required"`
}

// StructureResponse is the vault overview used for model context.
type StructureResponse struct {
	Summary string   `json:"summary" validate:"required"`
	Folders []string `json:"folders" validate:"required"`
}

// RebuildResponse reports a finished rebuild.
type RebuildResponse struct {
	Indexed int `json:"indexed" example:"42"`
}

// ApprovalListResponse lists pending approvals.
type ApprovalListResponse struct {
	Approvals []approval.Request `json:"approvals" validate:"required"`
}

// ChangeListResponse lists recently executed changes, newest first.
type ChangeListResponse struct {
	Changes []approval.Entry `json:"changes" validate:"required"`
}

// ResolveRequest is the optional body of the approve and reject routes. When
// Message is set, the matching tool call in it is moved out of
// requires_approval and the updated message is returned.
type ResolveRequest struct {
	Message *models.Message `json:"message,omitempty"`
}

// ResolveResponse is returned by approve and reject when a message was sent.
type ResolveResponse struct {
	Record  *models.ChangeRecord `json:"record,omitempty"`
	Message models.Message       `json:"message"`
	Error   string               `json:"error,omitempty"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Path string `json:"path" example:"attachments/image.png" validate:"required"`
	Size int64  `json:"size" example:"12345" validate:"required"`
	URL  string `json:"url" example:"/api/raw/attachments/image.png" validate:"required"`
}
