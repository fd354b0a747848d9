package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/muninn/internal/approval"
	"github.com/starford/muninn/internal/models"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeFileCreated, Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: file.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drainNow(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishFileEvent_IndexThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger index.updated.
	b.PublishFileEvent(models.FileEvent{Kind: models.FileCreated, Path: "a.md"})
	// Second event immediately should NOT trigger another index.updated.
	b.PublishFileEvent(models.FileEvent{Kind: models.FileModified, Path: "b.md"})

	time.Sleep(50 * time.Millisecond)
	indexCount := 0
	fileCount := 0
	for _, s := range drainNow(ch) {
		if strings.Contains(s, "index.updated") {
			indexCount++
		} else {
			fileCount++
		}
	}

	if fileCount != 2 {
		t.Errorf("file events = %d, want 2", fileCount)
	}
	if indexCount != 1 {
		t.Errorf("index events = %d, want 1 (throttled)", indexCount)
	}
}

func TestPublishFileEvent_Rename(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishFileEvent(models.FileEvent{Kind: models.FileRenamed, Path: "new.md", OldPath: "old.md"})
	time.Sleep(50 * time.Millisecond)

	msgs := drainNow(ch)
	if len(msgs) == 0 {
		t.Fatal("no events")
	}
	if !strings.Contains(msgs[0], "event: file.renamed") || !strings.Contains(msgs[0], `"oldPath":"old.md"`) {
		t.Errorf("rename event = %q", msgs[0])
	}
}

func TestOpenAndResolution(t *testing.T) {
	b := NewBroker(time.Hour)
	ch := b.Subscribe()

	if err := b.Open("Notes/a.md"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := models.ChangeRecord{Kind: models.ChangeCreate, Path: "x.md"}
	b.PublishResolution(approval.Resolution{ID: "c1", Approved: true, Record: &rec})
	time.Sleep(50 * time.Millisecond)

	msgs := drainNow(ch)
	if len(msgs) != 2 {
		t.Fatalf("events = %q", msgs)
	}
	if !strings.Contains(msgs[0], "event: file.open") || !strings.Contains(msgs[0], `"path":"Notes/a.md"`) {
		t.Errorf("open event = %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "event: approval.resolved") || !strings.Contains(msgs[1], `"approved":true`) {
		t.Errorf("resolution event = %q", msgs[1])
	}

	b.Close()
	if err := b.Open("a.md"); err == nil {
		t.Error("Open on a closed broker should fail")
	}
}

func TestFormat(t *testing.T) {
	raw, err := Format(Event{Type: "text", Data: map[string]string{"content": "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(raw), "event: text\ndata: {\"content\":\"hi\"}\n\n"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
	if _, err := Format(Event{Type: "bad", Data: make(chan int)}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeFileModified, Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: file.modified") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: TypeFileModified, Data: map[string]string{"path": "x.md"}})
	b.PublishFileEvent(models.FileEvent{Kind: models.FileModified, Path: "x.md"})
}
