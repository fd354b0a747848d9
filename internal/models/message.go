package models

import (
	"strings"
	"time"
)

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of a conversation.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
}

// Attachment is a file attached to a user message, typically from a mention.
// Binary attachments carry Data; text attachments carry Text.
type Attachment struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	MediaType string `json:"mediaType"`
	Text      string `json:"text,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// IsBinary reports whether the attachment must be sent as inline data.
func (a Attachment) IsBinary() bool {
	return IsBinaryMediaType(a.MediaType)
}

// IsBinaryMediaType reports whether a media type is sent to the model as bytes
// (images, audio, PDF) rather than inline text.
func IsBinaryMediaType(mt string) bool {
	return strings.HasPrefix(mt, "image/") ||
		strings.HasPrefix(mt, "audio/") ||
		mt == "application/pdf"
}

// ToolStatus is the lifecycle state of a tool call.
type ToolStatus string

const (
	ToolPending          ToolStatus = "pending"
	ToolRunning          ToolStatus = "running"
	ToolCompleted        ToolStatus = "completed"
	ToolFailed           ToolStatus = "failed"
	ToolRequiresApproval ToolStatus = "requires_approval"
	// ToolRejected marks a requires_approval call the user declined.
	// It is terminal but not an error.
	ToolRejected ToolStatus = "rejected"
)

// Terminal reports whether no further transition is expected on its own.
func (s ToolStatus) Terminal() bool {
	switch s {
	case ToolCompleted, ToolFailed, ToolRejected:
		return true
	}
	return false
}

// ToolCall is one invocation of a tool within a turn.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Status ToolStatus     `json:"status"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// StreamEventKind enumerates normalized turn events.
type StreamEventKind string

const (
	EventText       StreamEventKind = "text"
	EventToolCall   StreamEventKind = "tool-call"
	EventToolResult StreamEventKind = "tool-result"
	EventDone       StreamEventKind = "done"
)

// StreamEvent is one normalized event of a conversational turn.
type StreamEvent struct {
	Kind     StreamEventKind `json:"kind"`
	Content  string          `json:"content,omitempty"`
	ToolCall *ToolCall       `json:"toolCall,omitempty"`
}
