package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/muninn/internal/index"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/testutil"
	"github.com/starford/muninn/internal/tools"
)

func newTestBuilder(t *testing.T) *ContextBuilder {
	t.Helper()
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "Projects/Plan.md", "# Plan\nShip it #work")
	testutil.WriteFile(t, dir, "Projects/Roadmap.md", "Q1 goals")
	testutil.WriteFile(t, dir, "img/photo.png", "\x89PNG")

	idx := index.New(store, index.WithLogger(testutil.Logger()))
	if _, err := idx.RebuildAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	mem := tools.NewMemory(store, "")
	if err := mem.Save("tone", "prefers short answers"); err != nil {
		t.Fatal(err)
	}

	b := NewContextBuilder(idx, store, mem, testutil.Logger())
	b.now = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }
	return b
}

func TestBuildSystemPrompt(t *testing.T) {
	b := newTestBuilder(t)
	got := b.BuildSystemPrompt("Projects/Plan.md")

	for _, want := range []string{
		"Current date: Monday, 2026-03-02 09:30 UTC",
		"Vault: 3 files in 2 folders",
		"Projects/ (2 files)",
		"## Active file: Projects/Plan.md\n# Plan\nShip it #work",
		"## Memory",
		"prefers short answers",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestBuildSystemPrompt_NoActiveFile(t *testing.T) {
	b := newTestBuilder(t)
	got := b.BuildSystemPrompt("missing.md")
	if strings.Contains(got, "Active file") {
		t.Errorf("prompt mentions a missing active file:\n%s", got)
	}
}

func TestResolveMentions(t *testing.T) {
	b := newTestBuilder(t)
	got := b.ResolveMentions([]string{"Projects/Plan.md", "/img/photo.png", "missing.md", "Projects/Plan.md"})

	if len(got) != 2 {
		t.Fatalf("attachments = %+v", got)
	}
	if got[0].Name != "Plan.md" || got[0].MediaType != "text/markdown" || !strings.HasPrefix(got[0].Text, "# Plan") || got[0].Data != nil {
		t.Errorf("text attachment = %+v", got[0])
	}
	if got[1].Path != "img/photo.png" || got[1].MediaType != "image/png" || string(got[1].Data) != "\x89PNG" || got[1].Text != "" {
		t.Errorf("binary attachment = %+v", got[1])
	}
}

func TestResolveMentions_SkipsNonText(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFile(t, dir, "notes.md", "plain")
	testutil.WriteFile(t, dir, "archive.zip", "PK\x03\x04\xff\xfe\x00")
	testutil.WriteFile(t, dir, "dump.txt", "ok\x00ok")

	idx := index.New(store, index.WithLogger(testutil.Logger()))
	b := NewContextBuilder(idx, store, nil, testutil.Logger())

	got := b.ResolveMentions([]string{"archive.zip", "dump.txt", "notes.md"})
	if len(got) != 1 || got[0].Path != "notes.md" || got[0].Text != "plain" {
		t.Errorf("attachments = %+v", got)
	}
}

func TestSuggestMentions(t *testing.T) {
	b := newTestBuilder(t)
	got := b.SuggestMentions("road")
	if len(got) != 1 || got[0].Path != "Projects/Roadmap.md" || got[0].Extension != "md" {
		t.Errorf("suggestions = %+v", got)
	}
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"a.md":      "text/markdown",
		"a.PNG":     "image/png",
		"a.pdf":     "application/pdf",
		"a.mp3":     "audio/mpeg",
		"Makefile":  "text/plain",
		"a.unknown": "text/plain",
	}
	for p, want := range tests {
		if got := MediaType(p); got != want {
			t.Errorf("MediaType(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestMessageFolding(t *testing.T) {
	msg := models.Message{Role: models.RoleAssistant}
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventText, Content: "Hi"})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventToolCall, ToolCall: &models.ToolCall{ID: "a", Status: models.ToolRunning}})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventToolCall, ToolCall: &models.ToolCall{ID: "b", Status: models.ToolRunning}})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventToolResult, ToolCall: &models.ToolCall{ID: "a", Status: models.ToolRequiresApproval}})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventToolResult, ToolCall: &models.ToolCall{ID: "b", Status: models.ToolRequiresApproval}})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventText, Content: "!"})
	AppendEvent(&msg, models.StreamEvent{Kind: models.EventDone})

	if msg.Content != "Hi!" || len(msg.ToolCalls) != 2 {
		t.Fatalf("message = %+v", msg)
	}

	if !MarkRejected(&msg, "a") || msg.ToolCalls[0].Status != models.ToolRejected {
		t.Errorf("reject = %+v", msg.ToolCalls[0])
	}
	if MarkRejected(&msg, "a") {
		t.Error("rejecting twice should report false")
	}
	if ApplyApproval(&msg, "a", models.ChangeRecord{}, nil) {
		t.Error("rejected call must not be approved")
	}

	if !ApplyApproval(&msg, "b", models.ChangeRecord{}, errors.New("conflict")) {
		t.Fatal("ApplyApproval(b) = false")
	}
	if tc := msg.ToolCalls[1]; tc.Status != models.ToolFailed || tc.Error != "conflict" {
		t.Errorf("failed approval = %+v", tc)
	}
	if ApplyApproval(&msg, "missing", models.ChangeRecord{}, nil) {
		t.Error("unknown id should report false")
	}
}
