package kanban

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/muninn/internal/apperr"
)

const sample = `---
kanban-plugin: basic
---

## Todo

- [ ] Write docs
- [ ] Fix bug
  with details

## Done

- [x] Ship v1


%% kanban:settings
` + "```" + `
{"kanban-plugin":"basic"}
` + "```" + `
%%
`

func TestIsBoard(t *testing.T) {
	if !IsBoard([]byte(sample)) {
		t.Error("sample should be a board")
	}
	if IsBoard([]byte("# Just a note")) {
		t.Error("plain note reported as board")
	}
	if _, err := Parse([]byte("# note")); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("Parse err = %v", err)
	}
}

func TestParse(t *testing.T) {
	b, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(b.Lanes) != 2 {
		t.Fatalf("lanes = %+v", b.Lanes)
	}
	todo := b.Lanes[0]
	if todo.Title != "Todo" || len(todo.Cards) != 2 {
		t.Fatalf("todo = %+v", todo)
	}
	if todo.Cards[1].Text != "Fix bug\nwith details" {
		t.Errorf("continuation = %q", todo.Cards[1].Text)
	}
	if !b.Lanes[1].Cards[0].Done {
		t.Error("done card not parsed")
	}
}

func TestAddAndMoveCard(t *testing.T) {
	b, _ := Parse([]byte(sample))
	if err := b.AddCard("todo", "New task"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := b.AddCard("Nope", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing lane err = %v", err)
	}
	if err := b.AddCard("Todo", "  "); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty card err = %v", err)
	}

	if err := b.MoveCard("write DOCS", "Done"); err != nil {
		t.Fatalf("MoveCard: %v", err)
	}
	if err := b.MoveCard("ghost", "Done"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing card err = %v", err)
	}

	todo, _ := b.Lane("Todo")
	done, _ := b.Lane("Done")
	if len(todo.Cards) != 2 || todo.Cards[1].Text != "New task" {
		t.Errorf("todo = %+v", todo.Cards)
	}
	if len(done.Cards) != 2 || done.Cards[1].Text != "Write docs" {
		t.Errorf("done = %+v", done.Cards)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	b, _ := Parse([]byte(sample))
	out := b.Render()

	if !strings.HasPrefix(out, "---\nkanban-plugin: basic\n---\n") {
		t.Errorf("frontmatter lost:\n%s", out)
	}
	if !strings.Contains(out, "%% kanban:settings") {
		t.Errorf("settings lost:\n%s", out)
	}
	again, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Lanes) != 2 || again.Lanes[0].Cards[1].Text != "Fix bug\nwith details" || !again.Lanes[1].Cards[0].Done {
		t.Errorf("round trip = %+v", again.Lanes)
	}
}

func TestRenderKeepsUnknownLines(t *testing.T) {
	src := `---
kanban-plugin: basic
---

Sprint board, see [[Planning]].

## Todo

- [ ] Write docs

## Done

**Complete**
- [x] Ship v1

> archived weekly
`
	b, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := b.AddCard("Todo", "Review"); err != nil {
		t.Fatal(err)
	}
	if err := b.MoveCard("Write docs", "Done"); err != nil {
		t.Fatal(err)
	}
	out := b.Render()

	for _, want := range []string{
		"---\n\nSprint board, see [[Planning]].\n\n## Todo",
		"## Done\n\n**Complete**\n\n- [x] Ship v1\n- [ ] Write docs\n",
		"> archived weekly",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}

	again, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	done, _ := again.Lane("Done")
	if len(done.Cards) != 2 || done.Cards[0].Text != "Ship v1" {
		t.Errorf("done = %+v", done.Cards)
	}
	if again.Render() != out {
		t.Errorf("render not stable:\n%s\n---\n%s", out, again.Render())
	}
}
