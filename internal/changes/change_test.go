package changes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/testutil"
)

func testApplier(t *testing.T) (string, *Applier) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	return dir, NewApplier(store, testutil.Logger())
}

func TestApplyCreate(t *testing.T) {
	_, a := testApplier(t)
	rec, err := a.Apply(context.Background(), Create("new/a.md", "hello"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.Kind != models.ChangeCreate || rec.Path != "new/a.md" || rec.OldContent != nil || *rec.NewContent != "hello" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	data, _ := a.store.Read("new/a.md")
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if _, err := a.Apply(context.Background(), Create("new/a.md", "again")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second create err = %v", err)
	}
}

func TestApplyModify(t *testing.T) {
	dir, a := testApplier(t)
	testutil.WriteFile(t, dir, "m.md", "v1")

	rec, err := a.Apply(context.Background(), Modify("m.md", "v1", "v2"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *rec.OldContent != "v1" || *rec.NewContent != "v2" {
		t.Errorf("record = %+v", rec)
	}
}

func TestApplyModifyConflict(t *testing.T) {
	dir, a := testApplier(t)
	testutil.WriteFile(t, dir, "m.md", "v1")
	c := Modify("m.md", "v1", "v2")
	testutil.WriteFile(t, dir, "m.md", "edited meanwhile")

	if _, err := a.Apply(context.Background(), c); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	data, _ := a.store.Read("m.md")
	if string(data) != "edited meanwhile" {
		t.Errorf("conflicting change was written: %q", data)
	}
}

func TestApplyDelete(t *testing.T) {
	dir, a := testApplier(t)
	testutil.WriteFile(t, dir, "d.md", "bye")

	rec, err := a.Apply(context.Background(), Delete("d.md", "bye"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if *rec.OldContent != "bye" || rec.NewContent != nil {
		t.Errorf("record = %+v", rec)
	}
	if _, err := a.Apply(context.Background(), Delete("d.md", "bye")); err == nil {
		t.Error("deleting a missing file should fail")
	}
}

func TestApplyInvalid(t *testing.T) {
	_, a := testApplier(t)
	if _, err := a.Apply(context.Background(), Change{Kind: models.ChangeCreate}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty path err = %v", err)
	}
	if _, err := a.Apply(context.Background(), Change{Kind: "chmod", Path: "x"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("unknown kind err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Apply(ctx, Create("x.md", "")); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		c    Change
		want string
	}{
		{Create("a.md", "one\ntwo\n"), "Create a.md (2 lines)"},
		{Modify("a.md", "one\ntwo\n", "one\nthree\nfour\n"), "Modify a.md (+2 -1 lines)"},
		{Delete("a.md", "x"), "Delete a.md"},
	}
	for _, tt := range tests {
		if got := Describe(tt.c); got != tt.want {
			t.Errorf("Describe = %q, want %q", got, tt.want)
		}
	}
}

func TestPreview(t *testing.T) {
	p := Preview(Modify("a.md", "keep\nold\n", "keep\nnew\n"))
	for _, want := range []string{"--- a.md", " keep", "-old", "+new"} {
		if !strings.Contains(p, want) {
			t.Errorf("preview missing %q:\n%s", want, p)
		}
	}
}
