package chat

import (
	"maps"
	"time"

	"github.com/starford/muninn/internal/models"
)

// AppendEvent folds a turn event into the assistant message being built.
// Tool call updates replace the earlier state of the same id.
func AppendEvent(msg *models.Message, ev models.StreamEvent) {
	switch ev.Kind {
	case models.EventText:
		msg.Content += ev.Content
	case models.EventToolCall, models.EventToolResult:
		if ev.ToolCall == nil {
			return
		}
		tc := *ev.ToolCall
		tc.Args = maps.Clone(ev.ToolCall.Args)
		for i := range msg.ToolCalls {
			if msg.ToolCalls[i].ID == tc.ID {
				msg.ToolCalls[i] = tc
				return
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, tc)
	}
}

// Collect drains a turn into one assistant message.
func Collect(events <-chan models.StreamEvent, now time.Time) models.Message {
	msg := models.Message{Role: models.RoleAssistant, Timestamp: now}
	for ev := range events {
		AppendEvent(&msg, ev)
	}
	return msg
}

// ApplyApproval marks the requires_approval call id as completed with the
// executed change, or failed when execErr is set. It reports whether the
// call was found in a state waiting for approval.
func ApplyApproval(msg *models.Message, id string, record models.ChangeRecord, execErr error) bool {
	tc := waiting(msg, id)
	if tc == nil {
		return false
	}
	if execErr != nil {
		tc.Status = models.ToolFailed
		tc.Error = execErr.Error()
		return true
	}
	tc.Status = models.ToolCompleted
	tc.Error = ""
	tc.Result = record
	return true
}

// MarkRejected abandons the requires_approval call id.
func MarkRejected(msg *models.Message, id string) bool {
	tc := waiting(msg, id)
	if tc == nil {
		return false
	}
	tc.Status = models.ToolRejected
	return true
}

func waiting(msg *models.Message, id string) *models.ToolCall {
	for i := range msg.ToolCalls {
		tc := &msg.ToolCalls[i]
		if tc.ID == id && tc.Status == models.ToolRequiresApproval {
			return tc
		}
	}
	return nil
}
