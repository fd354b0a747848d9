package changes

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/starford/muninn/internal/models"
)

// Describe returns a one-line human-facing summary of c.
func Describe(c Change) string {
	switch c.Kind {
	case models.ChangeCreate:
		return fmt.Sprintf("Create %s (%d lines)", c.Path, lineCount(deref(c.NewContent)))
	case models.ChangeModify:
		added, removed := Stat(deref(c.OldContent), deref(c.NewContent))
		return fmt.Sprintf("Modify %s (+%d -%d lines)", c.Path, added, removed)
	case models.ChangeDelete:
		return fmt.Sprintf("Delete %s", c.Path)
	default:
		return fmt.Sprintf("%s %s", c.Kind, c.Path)
	}
}

// Preview renders a line diff of c: removed lines prefixed "-", added lines
// "+", unchanged lines " ".
func Preview(c Change) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", c.Path, c.Path)
	for _, d := range lineDiff(deref(c.OldContent), deref(c.NewContent)) {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Stat counts added and removed lines between old and new.
func Stat(old, new string) (added, removed int) {
	for _, d := range lineDiff(old, new) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(splitLines(d.Text))
		case diffmatchpatch.DiffDelete:
			removed += len(splitLines(d.Text))
		}
	}
	return added, removed
}

func lineDiff(old, new string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(a, b, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func lineCount(s string) int {
	return len(splitLines(s))
}
