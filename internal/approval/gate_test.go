package approval

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
)

func countingAction(n *atomic.Int32, path string) Action {
	return func(context.Context) (models.ChangeRecord, error) {
		n.Add(1)
		return models.ChangeRecord{Kind: models.ChangeDelete, Path: path, Timestamp: time.Now()}, nil
	}
}

func TestApproveOnce(t *testing.T) {
	var runs atomic.Int32
	g := NewGate()
	if err := g.Register("call-1", Request{Description: "Delete a.md"}, countingAction(&runs, "a.md")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec, err := g.Approve(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if rec.Path != "a.md" || runs.Load() != 1 {
		t.Errorf("record = %+v, runs = %d", rec, runs.Load())
	}

	if _, err := g.Approve(context.Background(), "call-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second approve err = %v, want ErrNotFound", err)
	}
	if g.Reject("call-1") {
		t.Error("reject after approve should report not found")
	}
	if runs.Load() != 1 {
		t.Errorf("action ran %d times", runs.Load())
	}
}

func TestRejectDoesNotRun(t *testing.T) {
	var runs atomic.Int32
	g := NewGate()
	id, err := g.Request(Request{Description: "x"}, countingAction(&runs, "x"))
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !g.Reject(id) {
		t.Fatal("reject should find pending action")
	}
	if g.Reject(id) {
		t.Error("second reject should report false")
	}
	if _, err := g.Approve(context.Background(), id); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("approve after reject err = %v", err)
	}
	if runs.Load() != 0 {
		t.Error("rejected action ran")
	}
}

func TestConcurrentApprove(t *testing.T) {
	var runs atomic.Int32
	g := NewGate()
	_ = g.Register("id", Request{}, countingAction(&runs, "p"))

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Approve(context.Background(), "id"); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	if runs.Load() != 1 || ok.Load() != 1 {
		t.Errorf("runs = %d, successes = %d", runs.Load(), ok.Load())
	}
}

func TestRegisterValidation(t *testing.T) {
	g := NewGate()
	var runs atomic.Int32
	if err := g.Register("", Request{}, countingAction(&runs, "p")); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty id err = %v", err)
	}
	if err := g.Register("a", Request{}, nil); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("nil action err = %v", err)
	}
	_ = g.Register("a", Request{}, countingAction(&runs, "p"))
	if err := g.Register("a", Request{}, countingAction(&runs, "p")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v", err)
	}
}

func TestFailedActionConsumesID(t *testing.T) {
	g := NewGate()
	boom := errors.New("boom")
	_ = g.Register("id", Request{}, func(context.Context) (models.ChangeRecord, error) {
		return models.ChangeRecord{}, boom
	})
	if _, err := g.Approve(context.Background(), "id"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := g.Get("id"); ok {
		t.Error("failed action still pending")
	}
}

func TestPendingOrder(t *testing.T) {
	g := NewGate()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var runs atomic.Int32
	_ = g.Register("late", Request{CreatedAt: base.Add(time.Minute)}, countingAction(&runs, "p"))
	_ = g.Register("early", Request{CreatedAt: base, Tool: "delete_file"}, countingAction(&runs, "p"))

	got := g.Pending()
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Fatalf("pending = %+v", got)
	}
	if got[0].Tool != "delete_file" {
		t.Errorf("tool = %q", got[0].Tool)
	}
}

func TestHistoryAndHook(t *testing.T) {
	h, err := NewHistory(2)
	if err != nil {
		t.Fatal(err)
	}
	var resolved []Resolution
	g := NewGate(WithHistory(h), WithOnResolved(func(r Resolution) {
		resolved = append(resolved, r)
	}))

	var runs atomic.Int32
	for _, id := range []string{"a", "b", "c", "d"} {
		_ = g.Register(id, Request{}, countingAction(&runs, id+".md"))
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := g.Approve(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}
	g.Reject("d")

	recent := h.Recent()
	if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
		t.Errorf("recent = %+v", recent)
	}
	if _, ok := h.Get("a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if rec, ok := h.Get("c"); !ok || rec.Path != "c.md" {
		t.Errorf("Get(c) = %+v, %v", rec, ok)
	}

	if len(resolved) != 4 || !resolved[0].Approved || resolved[0].Record == nil || resolved[3].Approved {
		t.Errorf("resolutions = %+v", resolved)
	}
}
