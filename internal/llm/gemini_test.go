package llm

import (
	"context"
	"errors"
	"iter"
	"testing"

	"go.uber.org/goleak"
	"google.golang.org/genai"
)

type geminiItem struct {
	resp *genai.GenerateContentResponse
	err  error
}

func geminiSeq(items ...geminiItem) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, it := range items {
			if !yield(it.resp, it.err) {
				return
			}
		}
	}
}

func candidate(reason genai.FinishReason, parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason: reason,
	}}}
}

func drain(t *testing.T, ch <-chan Chunk) []Chunk {
	t.Helper()
	var out []Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStreamChunks_FirstError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("quota exceeded")
	ch, err := streamChunks(context.Background(), geminiSeq(geminiItem{err: boom}))
	if !errors.Is(err, boom) || ch != nil {
		t.Fatalf("streamChunks = %v, %v", ch, err)
	}
}

func TestStreamChunks_MidStreamError(t *testing.T) {
	defer goleak.VerifyNone(t)

	lost := errors.New("connection reset")
	ch, err := streamChunks(context.Background(), geminiSeq(
		geminiItem{resp: candidate("", &genai.Part{Text: "thinking", Thought: true}, &genai.Part{Text: "Hi"})},
		geminiItem{err: lost},
		geminiItem{resp: candidate(genai.FinishReasonStop, &genai.Part{Text: "never"})},
	))
	if err != nil {
		t.Fatalf("streamChunks: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 2 {
		t.Fatalf("chunks = %+v", chunks)
	}
	if chunks[0].Text != "Hi" || chunks[0].Err != nil {
		t.Errorf("first = %+v", chunks[0])
	}
	if !errors.Is(chunks[1].Err, lost) {
		t.Errorf("second = %+v, want stream error", chunks[1])
	}
}

func TestStreamChunks_CallsAndFinish(t *testing.T) {
	defer goleak.VerifyNone(t)

	call := &genai.FunctionCall{Name: "read_file", Args: map[string]any{"path": "a.md"}}
	ch, err := streamChunks(context.Background(), geminiSeq(
		geminiItem{resp: candidate("", &genai.Part{FunctionCall: call})},
		geminiItem{resp: candidate(genai.FinishReasonMaxTokens)},
	))
	if err != nil {
		t.Fatalf("streamChunks: %v", err)
	}
	chunks := drain(t, ch)
	if len(chunks) != 2 || len(chunks[0].Calls) != 1 || chunks[0].Calls[0].Name != "read_file" {
		t.Fatalf("chunks = %+v", chunks)
	}
	if chunks[1].FinishReason != genai.FinishReasonMaxTokens {
		t.Errorf("finish = %q", chunks[1].FinishReason)
	}
}
