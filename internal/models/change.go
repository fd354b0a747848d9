package models

import "time"

// ChangeKind is the kind of vault mutation performed after approval.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
)

// ChangeRecord is the audit record of an executed mutation. Its JSON shape is
// persisted by conversation history writers and must stay stable.
type ChangeRecord struct {
	Kind       ChangeKind `json:"kind"`
	Path       string     `json:"path"`
	OldContent *string    `json:"oldContent,omitempty"`
	NewContent *string    `json:"newContent,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
