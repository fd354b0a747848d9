package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/genai"

	"github.com/starford/muninn/internal/testutil"
)

// ollamaServer answers /api/chat with one NDJSON script per request. The last
// script repeats once the others are used up.
type ollamaServer struct {
	mu      sync.Mutex
	status  int
	scripts [][]string
	calls   int
}

func (s *ollamaServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/chat" {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	script := s.scripts[min(s.calls, len(s.scripts)-1)]
	s.calls++
	status := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if status != 0 {
		w.WriteHeader(status)
	}
	for _, line := range script {
		fmt.Fprintln(w, line)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func newOllamaTest(t *testing.T, srv *ollamaServer) *OllamaModel {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	m, err := NewOllamaModel(ts.URL, "", "llama3")
	if err != nil {
		t.Fatalf("NewOllamaModel: %v", err)
	}
	return m
}

func stepRequest(text string) StepRequest {
	return StepRequest{Contents: []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}}
}

func TestOllama_RequestError(t *testing.T) {
	m := newOllamaTest(t, &ollamaServer{
		status:  http.StatusInternalServerError,
		scripts: [][]string{{`{"error":"model crashed"}`}},
	})
	ch, err := m.GenerateStream(context.Background(), stepRequest("hi"))
	if err == nil || ch != nil {
		t.Fatalf("GenerateStream = %v, %v, want error", ch, err)
	}
	if !strings.Contains(err.Error(), "model crashed") {
		t.Errorf("err = %v", err)
	}
}

func TestOllama_MidStreamError(t *testing.T) {
	m := newOllamaTest(t, &ollamaServer{scripts: [][]string{{
		`{"message":{"role":"assistant","content":"Hi"}}`,
		`{"error":"connection lost"}`,
	}}})
	ch, err := m.GenerateStream(context.Background(), stepRequest("hi"))
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v", chunks)
	}
	if chunks[0].Text != "Hi" {
		t.Errorf("first = %+v", chunks[0])
	}
	if chunks[1].Err == nil || !strings.Contains(chunks[1].Err.Error(), "connection lost") {
		t.Errorf("second = %+v, want stream error", chunks[1])
	}
}

func TestOllama_DoneReason(t *testing.T) {
	m := newOllamaTest(t, &ollamaServer{scripts: [][]string{{
		`{"message":{"role":"assistant","content":"long"}}`,
		`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"length"}`,
	}}})
	ch, err := m.GenerateStream(context.Background(), stepRequest("hi"))
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 2 || chunks[1].FinishReason != genai.FinishReasonMaxTokens {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestOllama_CallIDsUniqueAcrossSteps(t *testing.T) {
	call := `{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"index":0,"name":"%s","arguments":{"path":"a.md"}}}]},"done":true,"done_reason":"stop"}`
	srv := &ollamaServer{scripts: [][]string{
		{fmt.Sprintf(call, "create_file")},
		{fmt.Sprintf(call, "delete_file")},
		{`{"message":{"role":"assistant","content":"done"},"done":true,"done_reason":"stop"}`},
	}}
	exec := &fakeExecutor{}
	r := NewRunner(newOllamaTest(t, srv), exec, fastRetry(), testutil.Logger())

	s, err := r.Stream(context.Background(), userTurn("go"))
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	events := collect(t, s)

	ids := map[string]bool{}
	for _, ev := range events {
		if ev.Kind == EventToolCall {
			if ev.CallID == "" {
				t.Errorf("empty call id for %s", ev.Name)
			}
			ids[ev.CallID] = true
		}
	}
	if len(ids) != 2 {
		t.Errorf("distinct call ids = %v, want 2", ids)
	}
	if len(exec.calls) != 2 || exec.calls[0] != "create_file" || exec.calls[1] != "delete_file" {
		t.Errorf("executed = %v", exec.calls)
	}
	if last := events[len(events)-1]; last.Kind != EventFinish {
		t.Errorf("last = %+v", last)
	}
}
