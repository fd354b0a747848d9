package llm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/models"
)

func TestConvertMessages(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "Vault context"},
		{Role: models.RoleUser, Content: "Look at these", Attachments: []models.Attachment{
			{Name: "notes.md", MediaType: "text/markdown", Text: "# Notes"},
			{Name: "pic.png", MediaType: "image/png", Data: []byte{1, 2, 3}},
			{Name: "doc.pdf", MediaType: "application/pdf", Data: []byte{4}},
		}},
		{Role: models.RoleAssistant, Content: ""},
		{Role: models.RoleAssistant, Content: "Sure"},
	}

	system, contents := ConvertMessages(msgs)
	if system != "Vault context" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %d, want 2", len(contents))
	}

	user := contents[0]
	if user.Role != genai.RoleUser || len(user.Parts) != 4 {
		t.Fatalf("user parts = %+v", user.Parts)
	}
	if user.Parts[0].Text != "Look at these" {
		t.Errorf("body part = %q", user.Parts[0].Text)
	}
	wrapped := user.Parts[1].Text
	if !strings.HasPrefix(wrapped, "--- Attached file: notes.md ---\n# Notes") || !strings.HasSuffix(wrapped, "--- End of notes.md ---") {
		t.Errorf("text attachment = %q", wrapped)
	}
	if user.Parts[2].InlineData == nil || user.Parts[2].InlineData.MIMEType != "image/png" {
		t.Errorf("image part = %+v", user.Parts[2])
	}
	if user.Parts[3].InlineData == nil || user.Parts[3].InlineData.MIMEType != "application/pdf" {
		t.Errorf("pdf part = %+v", user.Parts[3])
	}
	if contents[1].Role != genai.RoleModel || contents[1].Parts[0].Text != "Sure" {
		t.Errorf("assistant = %+v", contents[1])
	}
}

func TestToOllamaMessages(t *testing.T) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{
			genai.NewPartFromText("hi"),
			genai.NewPartFromBytes([]byte{9}, "image/png"),
		}},
		{Role: genai.RoleModel, Parts: []*genai.Part{
			genai.NewPartFromText("calling"),
			{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "read_file", Args: map[string]any{"path": "a.md"}}},
		}},
	}
	resp := genai.NewPartFromFunctionResponse("read_file", map[string]any{"success": true, "content": "body"})
	resp.FunctionResponse.ID = "c1"
	contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{resp}})

	msgs := toOllamaMessages("sys", contents)
	if len(msgs) != 4 {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" || len(msgs[1].Images) != 1 {
		t.Errorf("head = %+v", msgs[:2])
	}
	if msgs[2].Role != "assistant" || len(msgs[2].ToolCalls) != 1 || msgs[2].ToolCalls[0].Function.Name != "read_file" {
		t.Errorf("assistant = %+v", msgs[2])
	}
	if msgs[3].Role != "tool" || msgs[3].Content != "body" || msgs[3].ToolCallID != "c1" {
		t.Errorf("tool = %+v", msgs[3])
	}
}

func TestFunctionResponseText(t *testing.T) {
	if got := functionResponseText(map[string]any{"success": false, "error": "nope"}); got != "Error: nope" {
		t.Errorf("error = %q", got)
	}
	if got := functionResponseText(map[string]any{"success": true, "data": []string{"a"}}); got != `["a"]` {
		t.Errorf("data = %q", got)
	}
	if got := functionResponseText(map[string]any{"success": true}); got != "Operation completed" {
		t.Errorf("empty = %q", got)
	}
}

func TestToOllamaTools(t *testing.T) {
	decls := []*genai.FunctionDeclaration{{
		Name:        "search_files",
		Description: "Search",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {Type: genai.TypeString, Description: "q"},
				"mode":  {Type: genai.TypeString, Enum: []string{"name", "content"}},
			},
			Required: []string{"query"},
		},
	}}
	got := toOllamaTools(decls)
	if len(got) != 1 || got[0].Function.Name != "search_files" || got[0].Type != "function" {
		t.Fatalf("tools = %+v", got)
	}
	if len(got[0].Function.Parameters.Required) != 1 {
		t.Errorf("required = %v", got[0].Function.Parameters.Required)
	}
}

func TestProcessResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonMalformedFunctionCall,
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking", Thought: true},
			{Text: "Hello"},
			{FunctionCall: &genai.FunctionCall{Name: "x"}},
		}},
	}}}
	c := processResponse(resp)
	if c.Text != "Hello" || len(c.Calls) != 1 || c.FinishReason != genai.FinishReasonMalformedFunctionCall {
		t.Errorf("chunk = %+v", c)
	}
	if empty := processResponse(&genai.GenerateContentResponse{}); empty.Text != "" || empty.FinishReason != "" {
		t.Errorf("empty = %+v", empty)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := map[string]bool{
		"429 Too Many Requests":       true,
		"dial tcp: connection refused": true,
		"unexpected EOF":              true,
		"invalid argument":            false,
	}
	for msg, want := range tests {
		if got := IsRetryable(errors.New(msg)); got != want {
			t.Errorf("IsRetryable(%q) = %v, want %v", msg, got, want)
		}
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestCalculateBackoff(t *testing.T) {
	for attempt := range 6 {
		d := CalculateBackoff(100*time.Millisecond, attempt, time.Second)
		if d < 100*time.Millisecond || d > 1250*time.Millisecond {
			t.Errorf("attempt %d: delay %v out of range", attempt, d)
		}
	}
}
